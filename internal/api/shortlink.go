package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kulinar/backend/internal/service"
)

// ShortLinkHandler resolves share codes outside the /api prefix.
type ShortLinkHandler struct {
	shortLinks *service.ShortLinkService
}

func NewShortLinkHandler(shortLinks *service.ShortLinkService) *ShortLinkHandler {
	return &ShortLinkHandler{shortLinks: shortLinks}
}

func (h *ShortLinkHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/s/:code", h.Redirect)
}

func (h *ShortLinkHandler) Redirect(c *gin.Context) {
	recipeID, err := h.shortLinks.Resolve(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Redirect(http.StatusFound, fmt.Sprintf("/recipes/%d", recipeID))
}
