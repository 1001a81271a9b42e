package service

import (
	"context"
	"errors"
	"regexp"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/kulinar/backend/internal/models"
	"github.com/kulinar/backend/internal/types"
)

// usernameRe is the allowed username character set. "me" is additionally
// reserved because it is a routing segment.
var usernameRe = regexp.MustCompile(`^[\w.@+-]+$`)

// UserService handles registration, profiles, avatars and subscriptions.
type UserService struct {
	db     *gorm.DB
	images ImageStore
}

func NewUserService(db *gorm.DB, images ImageStore) *UserService {
	return &UserService{
		db:     db,
		images: images,
	}
}

// Register validates the payload and creates the user with a bcrypt hash.
func (s *UserService) Register(ctx context.Context, req *types.CreateUserRequest) (*types.UserResponse, error) {
	verr := &ValidationError{}

	if req.Username == "me" {
		verr.add("username", `username "me" is reserved`)
	} else if !usernameRe.MatchString(req.Username) {
		verr.add("username", "username may only contain letters, digits and @/./+/-/_")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		verr.add("email", "a user with this email already exists")
	}
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", req.Username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		verr.add("username", "a user with this username already exists")
	}
	if !verr.empty() {
		return nil, verr
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Email:        req.Email,
		Username:     req.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: string(hashed),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &ValidationError{Fields: map[string][]string{
				"username": {"a user with this username or email already exists"},
			}}
		}
		return nil, err
	}

	resp := buildUserResponse(&user, false)
	return &resp, nil
}

// GetUser returns the user summary relative to the viewer. is_subscribed is
// false for anonymous viewers and for the viewer's own profile.
func (s *UserService) GetUser(ctx context.Context, userID uint, viewer *uint) (*types.UserResponse, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	subscribed, err := s.isSubscribed(ctx, viewer, user.ID)
	if err != nil {
		return nil, err
	}

	resp := buildUserResponse(&user, subscribed)
	return &resp, nil
}

// ListUsers returns one page of users ordered by username.
func (s *UserService) ListUsers(ctx context.Context, viewer *uint, offset, limit int) ([]types.UserResponse, int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	err := s.db.WithContext(ctx).
		Order("username").
		Offset(offset).
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, 0, err
	}

	subscribed := map[uint]bool{}
	if viewer != nil {
		ids := make([]uint, len(users))
		for i := range users {
			ids[i] = users[i].ID
		}
		var authorIDs []uint
		err = s.db.WithContext(ctx).Model(&models.Subscription{}).
			Where("user_id = ? AND author_id IN ?", *viewer, ids).
			Pluck("author_id", &authorIDs).Error
		if err != nil {
			return nil, 0, err
		}
		for _, id := range authorIDs {
			subscribed[id] = true
		}
	}

	results := make([]types.UserResponse, len(users))
	for i := range users {
		results[i] = buildUserResponse(&users[i], subscribed[users[i].ID])
	}
	return results, count, nil
}

// SetPassword verifies the current password before storing the new hash.
func (s *UserService) SetPassword(ctx context.Context, userID uint, req *types.SetPasswordRequest) error {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return &ValidationError{Fields: map[string][]string{
			"current_password": {"wrong password"},
		}}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&user).Update("password_hash", string(hashed)).Error
}

// SetAvatar decodes the base64 image, stores it and saves the URL.
func (s *UserService) SetAvatar(ctx context.Context, userID uint, encoded string) (string, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return "", err
	}

	data, contentType, err := DecodeBase64Image(encoded)
	if err != nil {
		return "", &ValidationError{Fields: map[string][]string{"avatar": {err.Error()}}}
	}
	url, err := s.images.UploadImage(ctx, data, contentType, "users/avatars")
	if err != nil {
		return "", err
	}

	if err := s.db.WithContext(ctx).Model(&user).Update("avatar_url", url).Error; err != nil {
		return "", err
	}
	return url, nil
}

func (s *UserService) ClearAvatar(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("avatar_url", "").Error
}

// Subscribe follows an author. The self-check runs before the duplicate
// check; the unique index settles concurrent subscribe races.
func (s *UserService) Subscribe(ctx context.Context, userID, authorID uint, recipesLimit *int) (*types.SubscriptionResponse, error) {
	if userID == authorID {
		return nil, ErrSelfSubscribe
	}

	var author models.User
	if err := s.db.WithContext(ctx).First(&author, authorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	sub := models.Subscription{UserID: userID, AuthorID: authorID}
	if err := s.db.WithContext(ctx).Create(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadySubscribed
		}
		return nil, err
	}

	return s.subscriptionEntry(ctx, &author, recipesLimit)
}

func (s *UserService) Unsubscribe(ctx context.Context, userID, authorID uint) error {
	if userID == authorID {
		return ErrSelfSubscribe
	}

	var author models.User
	if err := s.db.WithContext(ctx).First(&author, authorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	res := s.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Delete(&models.Subscription{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotSubscribed
	}
	return nil
}

// Subscriptions returns one page of followed authors, each with a truncated
// prefix of their recipes and the untruncated total.
func (s *UserService) Subscriptions(ctx context.Context, userID uint, recipesLimit *int, offset, limit int) ([]types.SubscriptionResponse, int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return nil, 0, err
	}

	var subs []models.Subscription
	err = s.db.WithContext(ctx).
		Preload("Author").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&subs).Error
	if err != nil {
		return nil, 0, err
	}

	results := make([]types.SubscriptionResponse, len(subs))
	for i := range subs {
		entry, err := s.subscriptionEntry(ctx, &subs[i].Author, recipesLimit)
		if err != nil {
			return nil, 0, err
		}
		results[i] = *entry
	}
	return results, count, nil
}

func (s *UserService) subscriptionEntry(ctx context.Context, author *models.User, recipesLimit *int) (*types.SubscriptionResponse, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&models.Recipe{}).
		Where("author_id = ?", author.ID).
		Count(&total).Error
	if err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).
		Where("author_id = ?", author.ID).
		Order("created_at DESC, id DESC")
	if recipesLimit != nil {
		q = q.Limit(*recipesLimit)
	}
	var recipes []models.Recipe
	if err := q.Find(&recipes).Error; err != nil {
		return nil, err
	}

	short := make([]types.RecipeShortResponse, len(recipes))
	for i := range recipes {
		short[i] = shortRecipeResponse(&recipes[i])
	}

	return &types.SubscriptionResponse{
		UserResponse: buildUserResponse(author, true),
		Recipes:      short,
		RecipesCount: total,
	}, nil
}

func (s *UserService) isSubscribed(ctx context.Context, viewer *uint, authorID uint) (bool, error) {
	if viewer == nil || *viewer == authorID {
		return false, nil
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("user_id = ? AND author_id = ?", *viewer, authorID).
		Count(&count).Error
	return count > 0, err
}
