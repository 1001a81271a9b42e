package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kulinar/backend/internal/models"
	"github.com/kulinar/backend/internal/types"
)

// CatalogHandler serves the read-only tag and ingredient lookups.
type CatalogHandler struct {
	db *gorm.DB
}

func NewCatalogHandler(db *gorm.DB) *CatalogHandler {
	return &CatalogHandler{db: db}
}

func (h *CatalogHandler) RegisterRoutes(router *gin.RouterGroup) {
	tags := router.Group("/tags")
	{
		tags.GET("", h.ListTags)
		tags.GET("/:id", h.GetTag)
	}

	ingredients := router.Group("/ingredients")
	{
		ingredients.GET("", h.ListIngredients)
		ingredients.GET("/:id", h.GetIngredient)
	}
}

func (h *CatalogHandler) ListTags(c *gin.Context) {
	var tags []models.Tag
	if err := h.db.WithContext(c.Request.Context()).Order("id").Find(&tags).Error; err != nil {
		respondError(c, err)
		return
	}

	results := make([]types.TagResponse, len(tags))
	for i, tag := range tags {
		results[i] = types.TagResponse{ID: tag.ID, Name: tag.Name, Slug: tag.Slug}
	}
	c.JSON(http.StatusOK, results)
}

func (h *CatalogHandler) GetTag(c *gin.Context) {
	tagID, ok := pathID(c)
	if !ok {
		return
	}

	var tag models.Tag
	if err := h.db.WithContext(c.Request.Context()).First(&tag, tagID).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.TagResponse{ID: tag.ID, Name: tag.Name, Slug: tag.Slug})
}

// ListIngredients supports a case-insensitive name prefix filter.
func (h *CatalogHandler) ListIngredients(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).Order("name")
	if name := c.Query("name"); name != "" {
		q = q.Where("LOWER(name) LIKE ?", strings.ToLower(name)+"%")
	}

	var ingredients []models.Ingredient
	if err := q.Find(&ingredients).Error; err != nil {
		respondError(c, err)
		return
	}

	results := make([]types.IngredientResponse, len(ingredients))
	for i, ing := range ingredients {
		results[i] = types.IngredientResponse{ID: ing.ID, Name: ing.Name, MeasurementUnit: ing.MeasurementUnit}
	}
	c.JSON(http.StatusOK, results)
}

func (h *CatalogHandler) GetIngredient(c *gin.Context) {
	ingredientID, ok := pathID(c)
	if !ok {
		return
	}

	var ing models.Ingredient
	if err := h.db.WithContext(c.Request.Context()).First(&ing, ingredientID).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.IngredientResponse{ID: ing.ID, Name: ing.Name, MeasurementUnit: ing.MeasurementUnit})
}
