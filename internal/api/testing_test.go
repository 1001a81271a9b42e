package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kulinar/backend/config"
	"github.com/kulinar/backend/internal/database"
	"github.com/kulinar/backend/internal/models"
)

type staticImageStore struct{}

func (staticImageStore) UploadImage(ctx context.Context, data []byte, contentType, prefix string) (string, error) {
	return "https://img.test/" + prefix + "/image.png", nil
}

func setupTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	cfg := &config.Config{
		JWTSecret:   "test-secret",
		HashidsSalt: "test-salt",
	}

	router := gin.New()
	require.NoError(t, SetupAPI(router, db, cfg, staticImageStore{}, nil))
	return router, db
}

// doRequest performs one request against the test router. A non-nil body is
// JSON encoded; a non-empty token is sent as a bearer header.
func doRequest(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

// registerUser creates an account through the API and logs in, returning the
// user id and a valid token.
func registerUser(t *testing.T, router *gin.Engine, username string) (uint, string) {
	t.Helper()

	w := doRequest(t, router, http.MethodPost, "/api/users", "", gin.H{
		"email":      username + "@example.com",
		"username":   username,
		"first_name": "Test",
		"last_name":  "User",
		"password":   "secret-password",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		ID uint `json:"id"`
	}
	decodeJSON(t, w, &created)

	w = doRequest(t, router, http.MethodPost, "/api/auth/token/login", "", gin.H{
		"email":    username + "@example.com",
		"password": "secret-password",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var login struct {
		AuthToken string `json:"auth_token"`
	}
	decodeJSON(t, w, &login)
	require.NotEmpty(t, login.AuthToken)

	return created.ID, login.AuthToken
}

func seedCatalog(t *testing.T, db *gorm.DB) (tagID, ingredientID uint) {
	t.Helper()
	tag := models.Tag{Name: "Dinner", Slug: "dinner"}
	require.NoError(t, db.Create(&tag).Error)
	ing := models.Ingredient{Name: "salt", MeasurementUnit: "g"}
	require.NoError(t, db.Create(&ing).Error)
	return tag.ID, ing.ID
}

func encodedImage() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("not really a png"))
}

func recipeBody(tagID, ingredientID uint) gin.H {
	return gin.H{
		"name":         "Soup",
		"text":         "Boil everything.",
		"image":        encodedImage(),
		"cooking_time": 30,
		"tags":         []uint{tagID},
		"ingredients":  []gin.H{{"id": ingredientID, "amount": 5}},
	}
}

// createRecipe posts a recipe and returns its id.
func createRecipe(t *testing.T, router *gin.Engine, token string, body gin.H) uint {
	t.Helper()
	w := doRequest(t, router, http.MethodPost, "/api/recipes", token, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		ID uint `json:"id"`
	}
	decodeJSON(t, w, &created)
	require.NotZero(t, created.ID)
	return created.ID
}

func recipePath(id uint, suffix string) string {
	return fmt.Sprintf("/api/recipes/%d%s", id, suffix)
}
