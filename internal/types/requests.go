package types

// CreateUserRequest represents the registration payload
type CreateUserRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Username  string `json:"username" binding:"required"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Password  string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type SetPasswordRequest struct {
	NewPassword     string `json:"new_password" binding:"required,min=8"`
	CurrentPassword string `json:"current_password" binding:"required"`
}

// SetAvatarRequest carries a base64 data-URI image.
type SetAvatarRequest struct {
	Avatar string `json:"avatar" binding:"required"`
}

// IngredientAmount is one (ingredient id, amount) entry of a recipe payload.
type IngredientAmount struct {
	ID     uint `json:"id"`
	Amount int  `json:"amount"`
}

// CreateRecipeRequest represents the request body for creating a recipe.
// Image is a base64 data-URI and is required on create.
type CreateRecipeRequest struct {
	Name        string             `json:"name" binding:"required"`
	Text        string             `json:"text" binding:"required"`
	Image       string             `json:"image"`
	CookingTime int                `json:"cooking_time"`
	Tags        []uint             `json:"tags"`
	Ingredients []IngredientAmount `json:"ingredients"`
}

// UpdateRecipeRequest represents the request body for updating a recipe.
// A nil Image keeps the stored one; Tags and Ingredients stay mandatory.
type UpdateRecipeRequest struct {
	Name        string             `json:"name" binding:"required"`
	Text        string             `json:"text" binding:"required"`
	Image       *string            `json:"image"`
	CookingTime int                `json:"cooking_time"`
	Tags        []uint             `json:"tags"`
	Ingredients []IngredientAmount `json:"ingredients"`
}

// RecipeFilter holds the supported recipe list filters.
type RecipeFilter struct {
	Author           uint
	TagSlugs         []string
	IsFavorited      *bool
	IsInShoppingCart *bool
}
