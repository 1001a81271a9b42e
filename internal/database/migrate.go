package database

import (
	"gorm.io/gorm"

	"github.com/kulinar/backend/internal/models"
)

// AutoMigrate creates or updates the schema for every model. Production
// deployments use the SQL files under migrations/ via cmd/migrate; this
// path serves development and the sqlite-backed tests.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Subscription{},
		&models.Tag{},
		&models.Ingredient{},
		&models.Recipe{},
		&models.RecipeIngredient{},
		&models.Favorite{},
		&models.ShoppingCart{},
	)
}
