package middleware

import (
	"strings"

	"github.com/brokerdesk/internal/models"
	"github.com/brokerdesk/internal/service"
	"github.com/brokerdesk/pkg/response"
	"github.com/gin-gonic/gin"
)

const (
	// ContextKeyUserID is the key for user ID in gin context
	ContextKeyUserID = "user_id"
	// ContextKeyEmail is the key for the token email in gin context
	ContextKeyEmail = "email"
	// ContextKeyAdmin is the key for admin claims in gin context
	ContextKeyAdmin = "admin_claims"
)

// UserTokens validates trader tokens
type UserTokens interface {
	ValidateToken(tokenString string) (*service.JWTClaims, error)
}

// AdminTokens validates console tokens
type AdminTokens interface {
	ValidateAdminToken(tokenString string) (*service.AdminClaims, error)
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		response.Unauthorized(c, "missing authorization header")
		c.Abort()
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		response.Unauthorized(c, "invalid authorization header format")
		c.Abort()
		return "", false
	}
	return parts[1], true
}

// AuthMiddleware creates a JWT authentication middleware for traders
func AuthMiddleware(tokens UserTokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			return
		}

		claims, err := tokens.ValidateToken(tokenString)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyEmail, claims.Email)

		c.Next()
	}
}

// AdminAuthMiddleware creates a JWT authentication middleware for the console
func AdminAuthMiddleware(tokens AdminTokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			return
		}

		claims, err := tokens.ValidateAdminToken(tokenString)
		if err != nil {
			response.Unauthorized(c, "invalid or expired admin token")
			c.Abort()
			return
		}

		c.Set(ContextKeyAdmin, claims)
		c.Set(ContextKeyEmail, claims.Email)

		c.Next()
	}
}

// RequirePermission lets the request through only when the admin holds perm.
// It must run after AdminAuthMiddleware.
func RequirePermission(perm models.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetAdminClaims(c)
		if claims == nil {
			response.Unauthorized(c, "admin authentication required")
			c.Abort()
			return
		}
		if !claims.Can(perm) {
			response.Forbidden(c, "missing permission: "+string(perm))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireSuperAdmin restricts a route to super admins
func RequireSuperAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetAdminClaims(c)
		if claims == nil || claims.Role != models.RoleSuperAdmin {
			response.Forbidden(c, "super admin only")
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetUserID gets the user ID from the gin context
func GetUserID(c *gin.Context) uint {
	userID, exists := c.Get(ContextKeyUserID)
	if !exists {
		return 0
	}
	return userID.(uint)
}

// GetAdminClaims gets the admin claims from the gin context
func GetAdminClaims(c *gin.Context) *service.AdminClaims {
	claims, exists := c.Get(ContextKeyAdmin)
	if !exists {
		return nil
	}
	return claims.(*service.AdminClaims)
}

// GetAdminID gets the admin ID from the gin context
func GetAdminID(c *gin.Context) uint {
	if claims := GetAdminClaims(c); claims != nil {
		return claims.AdminID
	}
	return 0
}
