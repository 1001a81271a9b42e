package api

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kulinar/backend/internal/models"
)

func TestRecipeLifecycle(t *testing.T) {
	router, db := setupTestRouter(t)
	tagID, ingredientID := seedCatalog(t, db)
	_, token := registerUser(t, router, "chef")
	_, fanToken := registerUser(t, router, "fan")

	recipeID := createRecipe(t, router, token, recipeBody(tagID, ingredientID))

	// Anonymous read: both viewer flags are false.
	w := doRequest(t, router, http.MethodGet, recipePath(recipeID, ""), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var recipe struct {
		Name             string `json:"name"`
		IsFavorited      bool   `json:"is_favorited"`
		IsInShoppingCart bool   `json:"is_in_shopping_cart"`
		Author           struct {
			Username string `json:"username"`
		} `json:"author"`
	}
	decodeJSON(t, w, &recipe)
	assert.Equal(t, "Soup", recipe.Name)
	assert.Equal(t, "chef", recipe.Author.Username)
	assert.False(t, recipe.IsFavorited)
	assert.False(t, recipe.IsInShoppingCart)

	// Favoriting returns the short view with 201.
	w = doRequest(t, router, http.MethodPost, recipePath(recipeID, "/favorite"), fanToken, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var short struct {
		ID          uint   `json:"id"`
		Name        string `json:"name"`
		Image       string `json:"image"`
		CookingTime int    `json:"cooking_time"`
	}
	decodeJSON(t, w, &short)
	assert.Equal(t, recipeID, short.ID)
	assert.Equal(t, "Soup", short.Name)
	assert.NotEmpty(t, short.Image)
	assert.Equal(t, 30, short.CookingTime)

	// Duplicate favorite is a conflict.
	w = doRequest(t, router, http.MethodPost, recipePath(recipeID, "/favorite"), fanToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// The fan sees the flag set, the author does not.
	w = doRequest(t, router, http.MethodGet, recipePath(recipeID, ""), fanToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeJSON(t, w, &recipe)
	assert.True(t, recipe.IsFavorited)

	w = doRequest(t, router, http.MethodDelete, recipePath(recipeID, "/favorite"), fanToken, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	// Removing twice reports the missing relation.
	w = doRequest(t, router, http.MethodDelete, recipePath(recipeID, "/favorite"), fanToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecipeAuthorization(t *testing.T) {
	router, db := setupTestRouter(t)
	tagID, ingredientID := seedCatalog(t, db)
	_, author := registerUser(t, router, "chef")
	_, rival := registerUser(t, router, "rival")

	recipeID := createRecipe(t, router, author, recipeBody(tagID, ingredientID))

	// Writes require a token.
	w := doRequest(t, router, http.MethodPost, "/api/recipes", "", recipeBody(tagID, ingredientID))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	update := recipeBody(tagID, ingredientID)
	update["name"] = "Stolen soup"

	w = doRequest(t, router, http.MethodPatch, recipePath(recipeID, ""), rival, update)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(t, router, http.MethodDelete, recipePath(recipeID, ""), rival, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(t, router, http.MethodPatch, recipePath(recipeID, ""), author, update)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated struct {
		Name string `json:"name"`
	}
	decodeJSON(t, w, &updated)
	assert.Equal(t, "Stolen soup", updated.Name)

	w = doRequest(t, router, http.MethodDelete, recipePath(recipeID, ""), author, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(t, router, http.MethodGet, recipePath(recipeID, ""), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecipeValidationResponse(t *testing.T) {
	router, db := setupTestRouter(t)
	tagID, ingredientID := seedCatalog(t, db)
	_, token := registerUser(t, router, "chef")

	body := recipeBody(tagID, ingredientID)
	body["cooking_time"] = 0
	body["tags"] = []uint{}

	w := doRequest(t, router, http.MethodPost, "/api/recipes", token, body)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var fields map[string][]string
	decodeJSON(t, w, &fields)
	assert.Contains(t, fields, "cooking_time")
	assert.Contains(t, fields, "tags")
}

func TestRecipeListPagination(t *testing.T) {
	router, db := setupTestRouter(t)
	tagID, ingredientID := seedCatalog(t, db)
	_, token := registerUser(t, router, "chef")

	for i := 0; i < 3; i++ {
		body := recipeBody(tagID, ingredientID)
		body["name"] = fmt.Sprintf("Recipe %d", i)
		createRecipe(t, router, token, body)
	}

	w := doRequest(t, router, http.MethodGet, "/api/recipes?limit=2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page struct {
		Count    int64   `json:"count"`
		Next     *string `json:"next"`
		Previous *string `json:"previous"`
		Results  []struct {
			Name string `json:"name"`
		} `json:"results"`
	}
	decodeJSON(t, w, &page)
	assert.EqualValues(t, 3, page.Count)
	assert.Len(t, page.Results, 2)
	require.NotNil(t, page.Next)
	assert.Contains(t, *page.Next, "page=2")
	assert.Nil(t, page.Previous)

	w = doRequest(t, router, http.MethodGet, "/api/recipes?limit=2&page=2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeJSON(t, w, &page)
	assert.Len(t, page.Results, 1)
	assert.Nil(t, page.Next)
	require.NotNil(t, page.Previous)
	assert.Contains(t, *page.Previous, "page=1")
}

func TestRecipeBadID(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doRequest(t, router, http.MethodGet, "/api/recipes/not-a-number", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(t, router, http.MethodGet, "/api/recipes/9999", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetLinkAndRedirect(t *testing.T) {
	router, db := setupTestRouter(t)
	tagID, ingredientID := seedCatalog(t, db)
	_, token := registerUser(t, router, "chef")
	recipeID := createRecipe(t, router, token, recipeBody(tagID, ingredientID))

	w := doRequest(t, router, http.MethodGet, recipePath(recipeID, "/get-link"), "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var link struct {
		ShortLink string `json:"short-link"`
	}
	decodeJSON(t, w, &link)
	require.NotEmpty(t, link.ShortLink)

	idx := strings.LastIndex(link.ShortLink, "/s/")
	require.Greater(t, idx, 0)
	code := link.ShortLink[idx+len("/s/"):]
	require.GreaterOrEqual(t, len(code), 8)

	w = doRequest(t, router, http.MethodGet, "/s/"+code, "", nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, fmt.Sprintf("/recipes/%d", recipeID), w.Header().Get("Location"))

	w = doRequest(t, router, http.MethodGet, "/s/garbage!!", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDownloadShoppingCart(t *testing.T) {
	router, db := setupTestRouter(t)
	tagID, ingredientID := seedCatalog(t, db)
	_, token := registerUser(t, router, "chef")

	// Empty cart is a 400, not an empty file.
	w := doRequest(t, router, http.MethodGet, "/api/recipes/download_shopping_cart", token, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var detail struct {
		Detail string `json:"detail"`
	}
	decodeJSON(t, w, &detail)
	assert.Equal(t, "shopping cart is empty", detail.Detail)

	recipeID := createRecipe(t, router, token, recipeBody(tagID, ingredientID))
	w = doRequest(t, router, http.MethodPost, recipePath(recipeID, "/shopping_cart"), token, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(t, router, http.MethodGet, "/api/recipes/download_shopping_cart", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestRecipeTagFilter(t *testing.T) {
	router, db := setupTestRouter(t)
	tagID, ingredientID := seedCatalog(t, db)
	_, token := registerUser(t, router, "chef")

	breakfast := models.Tag{Name: "Breakfast", Slug: "breakfast"}
	require.NoError(t, db.Create(&breakfast).Error)

	soup := recipeBody(tagID, ingredientID)
	createRecipe(t, router, token, soup)

	porridge := recipeBody(breakfast.ID, ingredientID)
	porridge["name"] = "Porridge"
	createRecipe(t, router, token, porridge)

	w := doRequest(t, router, http.MethodGet, "/api/recipes?tags=breakfast", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page struct {
		Count   int64 `json:"count"`
		Results []struct {
			Name string `json:"name"`
		} `json:"results"`
	}
	decodeJSON(t, w, &page)
	assert.EqualValues(t, 1, page.Count)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "Porridge", page.Results[0].Name)
}

