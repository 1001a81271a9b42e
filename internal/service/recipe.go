package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/kulinar/backend/internal/models"
	"github.com/kulinar/backend/internal/types"
)

// RecipeService owns the recipe aggregate: writes go through full payload
// validation and a transactional replace of the tag/ingredient associations,
// reads come back as the single recipe view with viewer-relative flags.
type RecipeService struct {
	db     *gorm.DB
	images ImageStore
}

func NewRecipeService(db *gorm.DB, images ImageStore) *RecipeService {
	return &RecipeService{
		db:     db,
		images: images,
	}
}

// CreateRecipe validates the payload, stores the image and creates the
// recipe together with its tag and ingredient associations.
func (s *RecipeService) CreateRecipe(ctx context.Context, authorID uint, req *types.CreateRecipeRequest) (*types.RecipeResponse, error) {
	tags, ingredients, err := s.validatePayload(ctx, req.CookingTime, req.Tags, req.Ingredients, req.Image == "", true)
	if err != nil {
		return nil, err
	}

	imageData, contentType, err := DecodeBase64Image(req.Image)
	if err != nil {
		return nil, &ValidationError{Fields: map[string][]string{"image": {err.Error()}}}
	}
	imageURL, err := s.images.UploadImage(ctx, imageData, contentType, "recipes/images")
	if err != nil {
		return nil, fmt.Errorf("failed to store recipe image: %w", err)
	}

	recipe := models.Recipe{
		AuthorID:    authorID,
		Name:        req.Name,
		Text:        req.Text,
		ImageURL:    imageURL,
		CookingTime: req.CookingTime,
		Tags:        tags,
		Ingredients: ingredients,
	}
	if err := s.db.WithContext(ctx).Create(&recipe).Error; err != nil {
		return nil, err
	}

	return s.GetRecipe(ctx, recipe.ID, &authorID)
}

// UpdateRecipe is restricted to the author. Tag and ingredient associations
// are replaced wholesale in one transaction, never patched incrementally.
func (s *RecipeService) UpdateRecipe(ctx context.Context, recipeID, userID uint, req *types.UpdateRecipeRequest) (*types.RecipeResponse, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if recipe.AuthorID != userID {
		return nil, ErrNotAuthor
	}

	tags, ingredients, err := s.validatePayload(ctx, req.CookingTime, req.Tags, req.Ingredients, false, false)
	if err != nil {
		return nil, err
	}

	imageURL := recipe.ImageURL
	if req.Image != nil && *req.Image != "" {
		imageData, contentType, err := DecodeBase64Image(*req.Image)
		if err != nil {
			return nil, &ValidationError{Fields: map[string][]string{"image": {err.Error()}}}
		}
		imageURL, err = s.images.UploadImage(ctx, imageData, contentType, "recipes/images")
		if err != nil {
			return nil, fmt.Errorf("failed to store recipe image: %w", err)
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		recipe.Name = req.Name
		recipe.Text = req.Text
		recipe.ImageURL = imageURL
		recipe.CookingTime = req.CookingTime
		if err := tx.Model(&recipe).Select("name", "text", "image_url", "cooking_time").Updates(&recipe).Error; err != nil {
			return err
		}
		if err := tx.Model(&recipe).Association("Tags").Replace(tags); err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return err
		}
		for i := range ingredients {
			ingredients[i].RecipeID = recipe.ID
		}
		return tx.Create(&ingredients).Error
	})
	if err != nil {
		return nil, err
	}

	return s.GetRecipe(ctx, recipe.ID, &userID)
}

// DeleteRecipe removes the recipe and, through the FK constraints, its join
// rows and any favorite/cart entry referencing it.
func (s *RecipeService) DeleteRecipe(ctx context.Context, recipeID, userID uint) error {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if recipe.AuthorID != userID {
		return ErrNotAuthor
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.Favorite{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.ShoppingCart{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&recipe).Association("Tags").Clear(); err != nil {
			return err
		}
		return tx.Delete(&recipe).Error
	})
}

// GetRecipe returns the full recipe view relative to the viewer, which may
// be nil for anonymous reads.
func (s *RecipeService) GetRecipe(ctx context.Context, recipeID uint, viewer *uint) (*types.RecipeResponse, error) {
	var recipe models.Recipe
	err := s.db.WithContext(ctx).
		Preload("Author").
		Preload("Tags").
		Preload("Ingredients.Ingredient").
		First(&recipe, recipeID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	favorited, inCart, err := s.relationFlags(ctx, viewer, []uint{recipe.ID})
	if err != nil {
		return nil, err
	}
	subscribed, err := s.subscribedSet(ctx, viewer, []uint{recipe.AuthorID})
	if err != nil {
		return nil, err
	}

	resp := buildRecipeResponse(&recipe, favorited[recipe.ID], inCart[recipe.ID], subscribed[recipe.AuthorID])
	return &resp, nil
}

// ListRecipes returns one page of the filtered recipe list, newest first,
// plus the total count for the pagination envelope.
func (s *RecipeService) ListRecipes(ctx context.Context, viewer *uint, filter types.RecipeFilter, offset, limit int) ([]types.RecipeResponse, int64, error) {
	base := s.filteredRecipes(ctx, viewer, filter)

	var count int64
	if err := base.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	var recipes []models.Recipe
	err := s.filteredRecipes(ctx, viewer, filter).
		Preload("Author").
		Preload("Tags").
		Preload("Ingredients.Ingredient").
		Order("recipes.created_at DESC, recipes.id DESC").
		Offset(offset).
		Limit(limit).
		Find(&recipes).Error
	if err != nil {
		return nil, 0, err
	}

	recipeIDs := make([]uint, len(recipes))
	authorIDs := make([]uint, len(recipes))
	for i := range recipes {
		recipeIDs[i] = recipes[i].ID
		authorIDs[i] = recipes[i].AuthorID
	}

	favorited, inCart, err := s.relationFlags(ctx, viewer, recipeIDs)
	if err != nil {
		return nil, 0, err
	}
	subscribed, err := s.subscribedSet(ctx, viewer, authorIDs)
	if err != nil {
		return nil, 0, err
	}

	results := make([]types.RecipeResponse, len(recipes))
	for i := range recipes {
		r := &recipes[i]
		results[i] = buildRecipeResponse(r, favorited[r.ID], inCart[r.ID], subscribed[r.AuthorID])
	}
	return results, count, nil
}

// Favorite adds the recipe to the user's favorites. The unique index on
// (user_id, recipe_id) closes the race between check and insert.
func (s *RecipeService) Favorite(ctx context.Context, userID, recipeID uint) (*types.RecipeShortResponse, error) {
	recipe, err := s.findRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}

	fav := models.Favorite{UserID: userID, RecipeID: recipeID}
	if err := s.db.WithContext(ctx).Create(&fav).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyFavorited
		}
		return nil, err
	}

	resp := shortRecipeResponse(recipe)
	return &resp, nil
}

func (s *RecipeService) Unfavorite(ctx context.Context, userID, recipeID uint) error {
	if _, err := s.findRecipe(ctx, recipeID); err != nil {
		return err
	}

	res := s.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(&models.Favorite{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFavorited
	}
	return nil
}

// AddToCart mirrors Favorite for the shopping cart relationship.
func (s *RecipeService) AddToCart(ctx context.Context, userID, recipeID uint) (*types.RecipeShortResponse, error) {
	recipe, err := s.findRecipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}

	entry := models.ShoppingCart{UserID: userID, RecipeID: recipeID}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyInCart
		}
		return nil, err
	}

	resp := shortRecipeResponse(recipe)
	return &resp, nil
}

func (s *RecipeService) RemoveFromCart(ctx context.Context, userID, recipeID uint) error {
	if _, err := s.findRecipe(ctx, recipeID); err != nil {
		return err
	}

	res := s.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(&models.ShoppingCart{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotInCart
	}
	return nil
}

func (s *RecipeService) findRecipe(ctx context.Context, recipeID uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &recipe, nil
}

// validatePayload runs every check before anything is written and reports
// all violations at once, keyed by field.
func (s *RecipeService) validatePayload(ctx context.Context, cookingTime int, tagIDs []uint, amounts []types.IngredientAmount, imageMissing, imageRequired bool) ([]models.Tag, []models.RecipeIngredient, error) {
	verr := &ValidationError{}

	if imageRequired && imageMissing {
		verr.add("image", "image is required")
	}
	if cookingTime < models.MinCookingTime || cookingTime > models.MaxCookingTime {
		verr.add("cooking_time", fmt.Sprintf("must be between %d and %d", models.MinCookingTime, models.MaxCookingTime))
	}

	if len(tagIDs) == 0 {
		verr.add("tags", "at least one tag is required")
	}
	seenTags := make(map[uint]bool, len(tagIDs))
	for _, id := range tagIDs {
		if seenTags[id] {
			verr.add("tags", "duplicate tags are not allowed")
			break
		}
		seenTags[id] = true
	}

	if len(amounts) == 0 {
		verr.add("ingredients", "at least one ingredient is required")
	}
	seenIngredients := make(map[uint]bool, len(amounts))
	for _, entry := range amounts {
		if seenIngredients[entry.ID] {
			verr.add("ingredients", "duplicate ingredients are not allowed")
			break
		}
		seenIngredients[entry.ID] = true
	}
	for _, entry := range amounts {
		if entry.Amount < models.MinAmount || entry.Amount > models.MaxAmount {
			verr.add("ingredients", fmt.Sprintf("amount must be between %d and %d", models.MinAmount, models.MaxAmount))
			break
		}
	}

	var tags []models.Tag
	if len(tagIDs) > 0 && !verr.has("tags") {
		if err := s.db.WithContext(ctx).Where("id IN ?", tagIDs).Find(&tags).Error; err != nil {
			return nil, nil, err
		}
		if len(tags) != len(tagIDs) {
			verr.add("tags", "unknown tag id")
		}
	}

	var rows []models.RecipeIngredient
	if len(amounts) > 0 && !verr.has("ingredients") {
		ids := make([]uint, len(amounts))
		for i, entry := range amounts {
			ids[i] = entry.ID
		}
		var ingredients []models.Ingredient
		if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&ingredients).Error; err != nil {
			return nil, nil, err
		}
		if len(ingredients) != len(amounts) {
			verr.add("ingredients", "unknown ingredient id")
		} else {
			rows = make([]models.RecipeIngredient, len(amounts))
			for i, entry := range amounts {
				rows[i] = models.RecipeIngredient{IngredientID: entry.ID, Amount: entry.Amount}
			}
		}
	}

	if !verr.empty() {
		return nil, nil, verr
	}
	return tags, rows, nil
}

// relationFlags batches the EXISTS checks behind is_favorited and
// is_in_shopping_cart. Anonymous viewers get empty sets.
func (s *RecipeService) relationFlags(ctx context.Context, viewer *uint, recipeIDs []uint) (map[uint]bool, map[uint]bool, error) {
	favorited := map[uint]bool{}
	inCart := map[uint]bool{}
	if viewer == nil || len(recipeIDs) == 0 {
		return favorited, inCart, nil
	}

	var favIDs []uint
	err := s.db.WithContext(ctx).Model(&models.Favorite{}).
		Where("user_id = ? AND recipe_id IN ?", *viewer, recipeIDs).
		Pluck("recipe_id", &favIDs).Error
	if err != nil {
		return nil, nil, err
	}
	for _, id := range favIDs {
		favorited[id] = true
	}

	var cartIDs []uint
	err = s.db.WithContext(ctx).Model(&models.ShoppingCart{}).
		Where("user_id = ? AND recipe_id IN ?", *viewer, recipeIDs).
		Pluck("recipe_id", &cartIDs).Error
	if err != nil {
		return nil, nil, err
	}
	for _, id := range cartIDs {
		inCart[id] = true
	}

	return favorited, inCart, nil
}

func (s *RecipeService) subscribedSet(ctx context.Context, viewer *uint, authorIDs []uint) (map[uint]bool, error) {
	subscribed := map[uint]bool{}
	if viewer == nil || len(authorIDs) == 0 {
		return subscribed, nil
	}

	var ids []uint
	err := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("user_id = ? AND author_id IN ?", *viewer, authorIDs).
		Pluck("author_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		subscribed[id] = true
	}
	return subscribed, nil
}

// filteredRecipes builds the filter query shared by Count and Find. The
// filter semantics follow the list endpoint contract: for an authenticated
// viewer is_favorited=1 narrows to favorited rows and is_favorited=0
// excludes them; anonymous with is_favorited=1 yields nothing.
func (s *RecipeService) filteredRecipes(ctx context.Context, viewer *uint, filter types.RecipeFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&models.Recipe{})

	if filter.Author != 0 {
		q = q.Where("recipes.author_id = ?", filter.Author)
	}

	if len(filter.TagSlugs) > 0 {
		sub := s.db.Table("recipe_tags").
			Select("recipe_tags.recipe_id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug IN ?", filter.TagSlugs)
		q = q.Where("recipes.id IN (?)", sub)
	}

	q = s.applyRelationFilter(q, viewer, filter.IsFavorited, "favorites")
	q = s.applyRelationFilter(q, viewer, filter.IsInShoppingCart, "shopping_carts")
	return q
}

func (s *RecipeService) applyRelationFilter(q *gorm.DB, viewer *uint, want *bool, table string) *gorm.DB {
	if want == nil {
		return q
	}
	if viewer == nil {
		if *want {
			return q.Where("1 = 0")
		}
		return q
	}
	sub := s.db.Table(table).Select("recipe_id").Where("user_id = ?", *viewer)
	if *want {
		return q.Where("recipes.id IN (?)", sub)
	}
	return q.Where("recipes.id NOT IN (?)", sub)
}

func buildRecipeResponse(recipe *models.Recipe, favorited, inCart, authorSubscribed bool) types.RecipeResponse {
	tags := make([]types.TagResponse, len(recipe.Tags))
	for i, tag := range recipe.Tags {
		tags[i] = types.TagResponse{ID: tag.ID, Name: tag.Name, Slug: tag.Slug}
	}

	ingredients := make([]types.RecipeIngredientResponse, len(recipe.Ingredients))
	for i, row := range recipe.Ingredients {
		ingredients[i] = types.RecipeIngredientResponse{
			ID:              row.IngredientID,
			Name:            row.Ingredient.Name,
			MeasurementUnit: row.Ingredient.MeasurementUnit,
			Amount:          row.Amount,
		}
	}

	return types.RecipeResponse{
		ID:               recipe.ID,
		Author:           buildUserResponse(&recipe.Author, authorSubscribed),
		Ingredients:      ingredients,
		Name:             recipe.Name,
		Image:            recipe.ImageURL,
		Text:             recipe.Text,
		CookingTime:      recipe.CookingTime,
		Tags:             tags,
		IsFavorited:      favorited,
		IsInShoppingCart: inCart,
	}
}

func shortRecipeResponse(recipe *models.Recipe) types.RecipeShortResponse {
	return types.RecipeShortResponse{
		ID:          recipe.ID,
		Name:        recipe.Name,
		Image:       recipe.ImageURL,
		CookingTime: recipe.CookingTime,
	}
}

func buildUserResponse(user *models.User, subscribed bool) types.UserResponse {
	return types.UserResponse{
		Email:        user.Email,
		ID:           user.ID,
		Username:     user.Username,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		IsSubscribed: subscribed,
		Avatar:       user.AvatarURL,
	}
}
