package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kulinar/backend/internal/middleware"
	"github.com/kulinar/backend/internal/service"
	"github.com/kulinar/backend/internal/types"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type RecipeHandler struct {
	recipes      *service.RecipeService
	shoppingList *service.ShoppingListService
	shortLinks   *service.ShortLinkService
	auth         *service.AuthService
	limiter      *middleware.RateLimiter
}

func NewRecipeHandler(recipes *service.RecipeService, shoppingList *service.ShoppingListService, shortLinks *service.ShortLinkService, auth *service.AuthService, limiter *middleware.RateLimiter) *RecipeHandler {
	return &RecipeHandler{
		recipes:      recipes,
		shoppingList: shoppingList,
		shortLinks:   shortLinks,
		auth:         auth,
		limiter:      limiter,
	}
}

func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup) {
	optional := middleware.OptionalAuthMiddleware(h.auth)
	required := middleware.AuthMiddleware(h.auth)

	write := []gin.HandlerFunc{required}
	if h.limiter != nil {
		write = append(write, h.limiter.RateLimitMiddleware())
	}

	recipes := router.Group("/recipes")
	{
		recipes.GET("", optional, h.ListRecipes)
		recipes.GET("/download_shopping_cart", required, h.DownloadShoppingCart)
		recipes.GET("/:id", optional, h.GetRecipe)
		recipes.GET("/:id/get-link", h.GetLink)
		recipes.POST("", append(write, h.CreateRecipe)...)
		recipes.PATCH("/:id", append(write, h.UpdateRecipe)...)
		recipes.DELETE("/:id", append(write, h.DeleteRecipe)...)
		recipes.POST("/:id/favorite", append(write, h.FavoriteRecipe)...)
		recipes.DELETE("/:id/favorite", append(write, h.UnfavoriteRecipe)...)
		recipes.POST("/:id/shopping_cart", append(write, h.AddToCart)...)
		recipes.DELETE("/:id/shopping_cart", append(write, h.RemoveFromCart)...)
	}
}

func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	filter := types.RecipeFilter{
		TagSlugs:         c.QueryArray("tags"),
		IsFavorited:      boolQuery(c, "is_favorited"),
		IsInShoppingCart: boolQuery(c, "is_in_shopping_cart"),
	}
	if v, err := strconv.ParseUint(c.Query("author"), 10, 32); err == nil {
		filter.Author = uint(v)
	}

	page, limit := pageParams(c)
	results, count, err := h.recipes.ListRecipes(c.Request.Context(), middleware.Viewer(c), filter, (page-1)*limit, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newPage(c, count, page, limit, results))
}

func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	recipeID, ok := pathID(c)
	if !ok {
		return
	}

	recipe, err := h.recipes.GetRecipe(c.Request.Context(), recipeID, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, recipe)
}

func (h *RecipeHandler) CreateRecipe(c *gin.Context) {
	var req types.CreateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	userID, _ := middleware.UserID(c)
	recipe, err := h.recipes.CreateRecipe(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, recipe)
}

func (h *RecipeHandler) UpdateRecipe(c *gin.Context) {
	recipeID, ok := pathID(c)
	if !ok {
		return
	}

	var req types.UpdateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	userID, _ := middleware.UserID(c)
	recipe, err := h.recipes.UpdateRecipe(c.Request.Context(), recipeID, userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, recipe)
}

func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	recipeID, ok := pathID(c)
	if !ok {
		return
	}

	userID, _ := middleware.UserID(c)
	if err := h.recipes.DeleteRecipe(c.Request.Context(), recipeID, userID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *RecipeHandler) FavoriteRecipe(c *gin.Context) {
	h.addRelation(c, h.recipes.Favorite)
}

func (h *RecipeHandler) UnfavoriteRecipe(c *gin.Context) {
	h.removeRelation(c, h.recipes.Unfavorite)
}

func (h *RecipeHandler) AddToCart(c *gin.Context) {
	h.addRelation(c, h.recipes.AddToCart)
}

func (h *RecipeHandler) RemoveFromCart(c *gin.Context) {
	h.removeRelation(c, h.recipes.RemoveFromCart)
}

// GetLink returns the compact share link for a recipe.
func (h *RecipeHandler) GetLink(c *gin.Context) {
	recipeID, ok := pathID(c)
	if !ok {
		return
	}

	code, err := h.shortLinks.Encode(c.Request.Context(), recipeID)
	if err != nil {
		respondError(c, err)
		return
	}

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	c.JSON(http.StatusOK, gin.H{
		"short-link": fmt.Sprintf("%s://%s/s/%s", scheme, c.Request.Host, code),
	})
}

// DownloadShoppingCart exports the aggregated shopping list as a workbook.
// An empty cart is reported as a 400, not an empty file.
func (h *RecipeHandler) DownloadShoppingCart(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	items, err := h.shoppingList.Aggregate(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrEmptyCart) {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "shopping cart is empty"})
			return
		}
		respondError(c, err)
		return
	}

	buf, err := h.shoppingList.ExportXLSX(items)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="shopping_list_%d.xlsx"`, userID))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *RecipeHandler) addRelation(c *gin.Context, add func(ctx context.Context, userID, recipeID uint) (*types.RecipeShortResponse, error)) {
	recipeID, ok := pathID(c)
	if !ok {
		return
	}

	userID, _ := middleware.UserID(c)
	short, err := add(c.Request.Context(), userID, recipeID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, short)
}

func (h *RecipeHandler) removeRelation(c *gin.Context, remove func(ctx context.Context, userID, recipeID uint) error) {
	recipeID, ok := pathID(c)
	if !ok {
		return
	}

	userID, _ := middleware.UserID(c)
	if err := remove(c.Request.Context(), userID, recipeID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// pathID parses the :id segment, writing the 404 itself on bad input.
func pathID(c *gin.Context) (uint, bool) {
	v, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "not found"})
		return 0, false
	}
	return uint(v), true
}
