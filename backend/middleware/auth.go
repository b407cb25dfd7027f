package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prajwallshetty/ClientX/backend/config"
	"github.com/prajwallshetty/ClientX/backend/pkg/logger"
)

// AllWorkspaces in a token's workspace list grants access to every workspace.
const AllWorkspaces = "*"

// Claims represents the JWT claims
type Claims struct {
	UserID     string   `json:"user_id"`
	Email      string   `json:"email"`
	Workspaces []string `json:"workspaces"`
	jwt.RegisteredClaims
}

// GenerateToken generates a new JWT token for a user
func GenerateToken(user *config.User, cfg *config.AuthConfig) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(time.Duration(cfg.TokenExpireHours) * time.Hour)

	claims := Claims{
		UserID:     user.UserID,
		Email:      user.Email,
		Workspaces: user.Workspaces,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UserID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// AuthMiddleware validates JWT token and extracts user info
func AuthMiddleware(cfg *config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, http.StatusUnauthorized, "Authorization header required")
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortWithError(c, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(cfg.JWTSecret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

		if err != nil || !token.Valid || claims.UserID == "" {
			abortWithError(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("workspaces", claims.Workspaces)
		c.Request = c.Request.WithContext(logger.With(c.Request.Context(), logger.UserIDKey, claims.UserID))

		c.Next()
	}
}

// RequireWorkspace rejects requests whose :workspaceId is not in the token.
func RequireWorkspace() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceID := c.Param("workspaceId")
		if workspaceID == "" {
			abortWithError(c, http.StatusBadRequest, "Workspace id required")
			return
		}
		if !HasWorkspace(GetWorkspaces(c), workspaceID) {
			logger.Warn(c.Request.Context(), "workspace access denied", "workspace_id", workspaceID)
			abortWithError(c, http.StatusForbidden, "Access to workspace denied")
			return
		}

		c.Set("workspace_id", workspaceID)
		c.Request = c.Request.WithContext(logger.With(c.Request.Context(), logger.WorkspaceKey, workspaceID))
		c.Next()
	}
}

// HasWorkspace reports whether workspaces grants access to workspaceID.
func HasWorkspace(workspaces []string, workspaceID string) bool {
	for _, w := range workspaces {
		if w == workspaceID || w == AllWorkspaces {
			return true
		}
	}
	return false
}

// GetUserID gets the user id from context
func GetUserID(c *gin.Context) string {
	return c.GetString("user_id")
}

// GetEmail gets the user email from context
func GetEmail(c *gin.Context) string {
	return c.GetString("email")
}

// GetWorkspaces gets the workspaces granted by the token
func GetWorkspaces(c *gin.Context) []string {
	return c.GetStringSlice("workspaces")
}

// GetWorkspaceID gets the workspace authorized by RequireWorkspace
func GetWorkspaceID(c *gin.Context) string {
	return c.GetString("workspace_id")
}

func abortWithError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":      msg,
		"request_id": GetRequestID(c),
	})
}
