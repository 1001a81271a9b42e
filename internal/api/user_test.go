package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndMe(t *testing.T) {
	router, _ := setupTestRouter(t)

	userID, token := registerUser(t, router, "chef")

	w := doRequest(t, router, http.MethodGet, "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var me struct {
		ID       uint   `json:"id"`
		Email    string `json:"email"`
		Username string `json:"username"`
	}
	decodeJSON(t, w, &me)
	assert.Equal(t, userID, me.ID)
	assert.Equal(t, "chef", me.Username)
	assert.Equal(t, "chef@example.com", me.Email)

	w = doRequest(t, router, http.MethodGet, "/api/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterRejectsReservedUsername(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/users", "", gin.H{
		"email":      "me@example.com",
		"username":   "me",
		"first_name": "A",
		"last_name":  "B",
		"password":   "secret-password",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var fields map[string][]string
	decodeJSON(t, w, &fields)
	assert.Contains(t, fields, "username")
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	router, _ := setupTestRouter(t)
	registerUser(t, router, "chef")

	w := doRequest(t, router, http.MethodPost, "/api/auth/token/login", "", gin.H{
		"email":    "chef@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetPasswordEndpoint(t *testing.T) {
	router, _ := setupTestRouter(t)
	_, token := registerUser(t, router, "chef")

	w := doRequest(t, router, http.MethodPost, "/api/users/set_password", token, gin.H{
		"current_password": "secret-password",
		"new_password":     "another-password",
	})
	assert.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = doRequest(t, router, http.MethodPost, "/api/auth/token/login", "", gin.H{
		"email":    "chef@example.com",
		"password": "another-password",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAvatarEndpoints(t *testing.T) {
	router, _ := setupTestRouter(t)
	_, token := registerUser(t, router, "chef")

	w := doRequest(t, router, http.MethodPut, "/api/users/me/avatar", token, gin.H{
		"avatar": encodedImage(),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Avatar string `json:"avatar"`
	}
	decodeJSON(t, w, &resp)
	assert.NotEmpty(t, resp.Avatar)

	w = doRequest(t, router, http.MethodDelete, "/api/users/me/avatar", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestSubscribeEndpoints(t *testing.T) {
	router, db := setupTestRouter(t)
	tagID, ingredientID := seedCatalog(t, db)

	readerID, readerToken := registerUser(t, router, "reader")
	authorID, authorToken := registerUser(t, router, "author")

	createRecipe(t, router, authorToken, recipeBody(tagID, ingredientID))

	// Subscribing to yourself fails before any lookup.
	w := doRequest(t, router, http.MethodPost, fmt.Sprintf("/api/users/%d/subscribe", readerID), readerToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, router, http.MethodPost, "/api/users/9999/subscribe", readerToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, router, http.MethodPost, fmt.Sprintf("/api/users/%d/subscribe", authorID), readerToken, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var entry struct {
		ID           uint `json:"id"`
		IsSubscribed bool `json:"is_subscribed"`
		RecipesCount int  `json:"recipes_count"`
		Recipes      []struct {
			Name string `json:"name"`
		} `json:"recipes"`
	}
	decodeJSON(t, w, &entry)
	assert.Equal(t, authorID, entry.ID)
	assert.True(t, entry.IsSubscribed)
	assert.Equal(t, 1, entry.RecipesCount)
	assert.Len(t, entry.Recipes, 1)

	w = doRequest(t, router, http.MethodPost, fmt.Sprintf("/api/users/%d/subscribe", authorID), readerToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// The subscription list honors recipes_limit without touching the count.
	w = doRequest(t, router, http.MethodGet, "/api/users/subscriptions?recipes_limit=0", readerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Count   int64 `json:"count"`
		Results []struct {
			ID           uint `json:"id"`
			RecipesCount int  `json:"recipes_count"`
			Recipes      []struct {
				Name string `json:"name"`
			} `json:"recipes"`
		} `json:"results"`
	}
	decodeJSON(t, w, &page)
	assert.EqualValues(t, 1, page.Count)
	require.Len(t, page.Results, 1)
	assert.Equal(t, authorID, page.Results[0].ID)
	assert.Equal(t, 1, page.Results[0].RecipesCount)
	assert.Empty(t, page.Results[0].Recipes)

	w = doRequest(t, router, http.MethodDelete, fmt.Sprintf("/api/users/%d/subscribe", authorID), readerToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(t, router, http.MethodDelete, fmt.Sprintf("/api/users/%d/subscribe", authorID), readerToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListUsersEndpoint(t *testing.T) {
	router, _ := setupTestRouter(t)
	registerUser(t, router, "alice")
	registerUser(t, router, "bob")

	w := doRequest(t, router, http.MethodGet, "/api/users", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page struct {
		Count   int64 `json:"count"`
		Results []struct {
			Username string `json:"username"`
		} `json:"results"`
	}
	decodeJSON(t, w, &page)
	assert.EqualValues(t, 2, page.Count)
	require.Len(t, page.Results, 2)
	assert.Equal(t, "alice", page.Results[0].Username)
	assert.Equal(t, "bob", page.Results[1].Username)
}
