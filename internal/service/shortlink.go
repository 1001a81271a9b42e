package service

import (
	"context"
	"errors"

	hashids "github.com/speps/go-hashids/v2"
	"gorm.io/gorm"

	"github.com/kulinar/backend/internal/models"
)

const shortCodeMinLength = 8

// ShortLinkService maps recipe ids to compact reversible share codes.
type ShortLinkService struct {
	db *gorm.DB
	h  *hashids.HashID
}

func NewShortLinkService(db *gorm.DB, salt string) (*ShortLinkService, error) {
	data := hashids.NewData()
	data.Salt = salt
	data.MinLength = shortCodeMinLength
	h, err := hashids.NewWithData(data)
	if err != nil {
		return nil, err
	}
	return &ShortLinkService{db: db, h: h}, nil
}

// Encode returns the short code for an existing recipe.
func (s *ShortLinkService) Encode(ctx context.Context, recipeID uint) (string, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return s.h.Encode([]int{int(recipe.ID)})
}

// Resolve decodes a short code and verifies the recipe still exists.
func (s *ShortLinkService) Resolve(ctx context.Context, code string) (uint, error) {
	ids, err := s.h.DecodeWithError(code)
	if err != nil || len(ids) == 0 || ids[0] <= 0 {
		return 0, ErrNotFound
	}

	recipeID := uint(ids[0])
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return recipe.ID, nil
}
