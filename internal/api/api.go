package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kulinar/backend/config"
	"github.com/kulinar/backend/internal/middleware"
	"github.com/kulinar/backend/internal/service"
)

// SetupAPI wires the services and registers every route on the engine.
// limiter and images may be nil (no rate limiting / no image storage in
// tests).
func SetupAPI(router *gin.Engine, db *gorm.DB, cfg *config.Config, images service.ImageStore, limiter *middleware.RateLimiter) error {
	authService := service.NewAuthService(db, cfg.JWTSecret)
	userService := service.NewUserService(db, images)
	recipeService := service.NewRecipeService(db, images)
	shoppingListService := service.NewShoppingListService(db)
	shortLinkService, err := service.NewShortLinkService(db, cfg.HashidsSalt)
	if err != nil {
		return err
	}

	v1 := router.Group("/api")
	{
		NewAuthHandler(authService).RegisterRoutes(v1)
		NewUserHandler(userService, authService, limiter).RegisterRoutes(v1)
		NewRecipeHandler(recipeService, shoppingListService, shortLinkService, authService, limiter).RegisterRoutes(v1)
		NewCatalogHandler(db).RegisterRoutes(v1)
	}
	NewShortLinkHandler(shortLinkService).RegisterRoutes(router)

	return nil
}
