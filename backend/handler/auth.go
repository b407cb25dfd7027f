package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prajwallshetty/ClientX/backend/config"
	"github.com/prajwallshetty/ClientX/backend/middleware"
	"github.com/prajwallshetty/ClientX/backend/pkg/logger"
)

type AuthHandler struct {
	config *config.Config
}

func NewAuthHandler(cfg *config.Config) *AuthHandler {
	return &AuthHandler{config: cfg}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token      string   `json:"token"`
	ExpiresAt  string   `json:"expires_at"`
	UserID     string   `json:"user_id"`
	Username   string   `json:"username"`
	Email      string   `json:"email"`
	Workspaces []string `json:"workspaces"`
}

// Login handles user login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request")
		return
	}

	user := h.config.FindUser(req.Username)
	if user == nil || subtle.ConstantTimeCompare([]byte(user.Password), []byte(req.Password)) != 1 {
		logger.Warn(c.Request.Context(), "login failed", "username", req.Username)
		respondError(c, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	token, expiresAt, err := middleware.GenerateToken(user, &h.config.Auth)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to generate token", "error", err)
		respondError(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:      token,
		ExpiresAt:  expiresAt.Format("2006-01-02T15:04:05Z07:00"),
		UserID:     user.UserID,
		Username:   user.Username,
		Email:      user.Email,
		Workspaces: user.Workspaces,
	})
}

// GetCurrentUser returns the current user info
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"user_id":    middleware.GetUserID(c),
		"email":      middleware.GetEmail(c),
		"workspaces": middleware.GetWorkspaces(c),
	})
}
