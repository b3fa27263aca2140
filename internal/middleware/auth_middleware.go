package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"stockledger/internal/models"
	"stockledger/internal/services"
	"stockledger/pkg/utils"

	"github.com/gin-gonic/gin"
)

// AccessContextKey holds the caller's models.AccessContext in the gin context.
const AccessContextKey = "accessContext"

// AccessResolver loads the current role and warehouse binding of a user.
type AccessResolver interface {
	ResolveAccess(ctx context.Context, userID int64) (models.AccessContext, error)
}

// AuthMiddleware creates a Gin middleware for JWT authentication. The token
// identifies the user; role and warehouse come from the user's current row.
func AuthMiddleware(issuer *utils.TokenIssuer, resolver AccessResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Authorization header required", ""))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid authorization header format. Use Bearer <token>", ""))
			return
		}

		claims, err := issuer.ValidateToken(parts[1])
		if err != nil {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid or expired token", err.Error()))
			return
		}

		access, err := resolver.ResolveAccess(c.Request.Context(), claims.UserID)
		if err != nil {
			respondAccessError(c, err, claims.UserID)
			return
		}

		// Set user information in the context for downstream handlers
		c.Set("userID", access.UserID)
		c.Set("username", access.Username)
		c.Set("userRole", access.Role)
		c.Set(AccessContextKey, access)

		c.Next()
	}
}

func respondAccessError(c *gin.Context, err error, userID int64) {
	var storage *services.StorageError
	switch {
	case errors.Is(err, services.ErrUserNotFound), errors.Is(err, services.ErrUserInactive):
		utils.LogWarn(err, "Rejected token of unknown or inactive user", map[string]interface{}{"user_id": userID})
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "User account is unknown or inactive", ""))
	case errors.As(err, &storage) && storage.Retryable():
		utils.LogError(err, "Failed to resolve caller access", map[string]interface{}{"user_id": userID})
		utils.RespondWithError(c, utils.NewStorageUnavailableError(""))
	default:
		utils.LogError(err, "Failed to resolve caller access", map[string]interface{}{"user_id": userID})
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to authenticate user.", ""))
	}
}

// RoleAuthMiddleware creates a Gin middleware for role-based authorization.
// It checks if the user role set by AuthMiddleware is one of the allowed roles.
func RoleAuthMiddleware(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, exists := c.Get("userRole")
		if !exists {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden, "User role not found in token claims.", ""))
			return
		}

		roleStr, ok := userRole.(string)
		if !ok {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "User role in token is not a string", ""))
			return
		}

		for _, r := range allowedRoles {
			if strings.EqualFold(roleStr, r) {
				c.Next()
				return
			}
		}
		utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden,
			"You do not have permission to access this resource. Required roles: "+strings.Join(allowedRoles, ", "), ""))
	}
}
