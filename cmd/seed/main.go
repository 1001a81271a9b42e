package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"io"
	"os"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kulinar/backend/config"
	"github.com/kulinar/backend/internal/database"
	"github.com/kulinar/backend/internal/logger"
	"github.com/kulinar/backend/internal/models"
)

// Loads ingredients from a "name,measurement_unit" CSV file into the
// database, skipping rows that already exist.
func main() {
	logger.Init()
	defer logger.Sync()

	path := flag.String("file", "data/ingredients.csv", "path to the ingredients CSV file")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	db, err := database.New(cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	f, err := os.Open(*path)
	if err != nil {
		logger.Fatal("failed to open CSV file", zap.Error(err))
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 2

	var created, skipped int
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logger.Fatal("failed to read CSV row", zap.Error(err))
		}

		ingredient := models.Ingredient{Name: record[0], MeasurementUnit: record[1]}
		if err := db.Create(&ingredient).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				skipped++
				continue
			}
			logger.Fatal("failed to insert ingredient", zap.String("name", record[0]), zap.Error(err))
		}
		created++
	}

	logger.Info("ingredients imported", zap.Int("created", created), zap.Int("skipped", skipped))
}
