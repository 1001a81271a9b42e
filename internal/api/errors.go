package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kulinar/backend/internal/logger"
	"github.com/kulinar/backend/internal/service"
)

// respondError maps service errors onto the response taxonomy: field-keyed
// 400 for validation, 400 detail for relationship conflicts, 403 for
// non-author mutation, 404 for unknown ids, 500 for everything unexpected.
func respondError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, verr.Fields)
	case errors.Is(err, service.ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": "not found"})
	case errors.Is(err, service.ErrNotAuthor):
		c.JSON(http.StatusForbidden, gin.H{"detail": err.Error()})
	case isConflict(err):
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
	default:
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "internal server error"})
	}
}

func isConflict(err error) bool {
	for _, sentinel := range []error{
		service.ErrAlreadyFavorited,
		service.ErrNotFavorited,
		service.ErrAlreadyInCart,
		service.ErrNotInCart,
		service.ErrAlreadySubscribed,
		service.ErrNotSubscribed,
		service.ErrSelfSubscribe,
		service.ErrEmptyCart,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
}
