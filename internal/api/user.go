package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kulinar/backend/internal/middleware"
	"github.com/kulinar/backend/internal/service"
	"github.com/kulinar/backend/internal/types"
)

type UserHandler struct {
	users   *service.UserService
	auth    *service.AuthService
	limiter *middleware.RateLimiter
}

func NewUserHandler(users *service.UserService, auth *service.AuthService, limiter *middleware.RateLimiter) *UserHandler {
	return &UserHandler{
		users:   users,
		auth:    auth,
		limiter: limiter,
	}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	optional := middleware.OptionalAuthMiddleware(h.auth)
	required := middleware.AuthMiddleware(h.auth)

	write := []gin.HandlerFunc{required}
	if h.limiter != nil {
		write = append(write, h.limiter.RateLimitMiddleware())
	}

	users := router.Group("/users")
	{
		users.GET("", optional, h.ListUsers)
		users.POST("", h.CreateUser)
		users.GET("/me", required, h.Me)
		users.PUT("/me/avatar", append(write, h.SetAvatar)...)
		users.DELETE("/me/avatar", append(write, h.ClearAvatar)...)
		users.POST("/set_password", required, h.SetPassword)
		users.GET("/subscriptions", required, h.Subscriptions)
		users.GET("/:id", optional, h.GetUser)
		users.POST("/:id/subscribe", append(write, h.Subscribe)...)
		users.DELETE("/:id/subscribe", append(write, h.Unsubscribe)...)
	}
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	page, limit := pageParams(c)
	results, count, err := h.users.ListUsers(c.Request.Context(), middleware.Viewer(c), (page-1)*limit, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newPage(c, count, page, limit, results))
}

func (h *UserHandler) CreateUser(c *gin.Context) {
	var req types.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.users.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	userID, ok := pathID(c)
	if !ok {
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), userID, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) Me(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	user, err := h.users.GetUser(c.Request.Context(), userID, nil)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) SetPassword(c *gin.Context) {
	var req types.SetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	userID, _ := middleware.UserID(c)
	if err := h.users.SetPassword(c.Request.Context(), userID, &req); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *UserHandler) SetAvatar(c *gin.Context) {
	var req types.SetAvatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	userID, _ := middleware.UserID(c)
	url, err := h.users.SetAvatar(c.Request.Context(), userID, req.Avatar)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"avatar": url})
}

func (h *UserHandler) ClearAvatar(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	if err := h.users.ClearAvatar(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Subscriptions lists the authors the user follows; `recipes_limit`
// truncates each entry's recipes without affecting recipes_count.
func (h *UserHandler) Subscriptions(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	page, limit := pageParams(c)

	results, count, err := h.users.Subscriptions(c.Request.Context(), userID, intQuery(c, "recipes_limit"), (page-1)*limit, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newPage(c, count, page, limit, results))
}

func (h *UserHandler) Subscribe(c *gin.Context) {
	authorID, ok := pathID(c)
	if !ok {
		return
	}

	userID, _ := middleware.UserID(c)
	entry, err := h.users.Subscribe(c.Request.Context(), userID, authorID, intQuery(c, "recipes_limit"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, entry)
}

func (h *UserHandler) Unsubscribe(c *gin.Context) {
	authorID, ok := pathID(c)
	if !ok {
		return
	}

	userID, _ := middleware.UserID(c)
	if err := h.users.Unsubscribe(c.Request.Context(), userID, authorID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
