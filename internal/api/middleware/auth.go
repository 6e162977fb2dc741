// Package middleware provides HTTP middleware for the API.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chatgate/chat-service/internal/domain/models"
	"github.com/chatgate/chat-service/internal/services/authgate"
)

const identityContextKey = "identity"

// AuthMiddleware guards REST endpoints with bearer-token verification.
type AuthMiddleware struct {
	gate authgate.Service
}

// NewAuthMiddleware creates a new AuthMiddleware.
func NewAuthMiddleware(gate authgate.Service) *AuthMiddleware {
	return &AuthMiddleware{gate: gate}
}

// Authenticate returns a gin middleware that verifies the Bearer token and
// stores the resulting identity in the context for downstream handlers.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "AUTHENTICATION_ERROR",
				"message": "missing authorization header",
			})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "AUTHENTICATION_ERROR",
				"message": "invalid authorization header format",
			})
			return
		}

		id, err := m.gate.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "AUTHENTICATION_ERROR",
				"message": "authentication failed",
			})
			return
		}

		c.Set(identityContextKey, id)
		c.Next()
	}
}

// GetIdentity retrieves the authenticated identity from the gin context, or
// nil when the request did not pass authentication.
func GetIdentity(c *gin.Context) *models.Identity {
	if v, exists := c.Get(identityContextKey); exists {
		if id, ok := v.(*models.Identity); ok {
			return id
		}
	}
	return nil
}

// ServiceKeyMiddleware guards operator endpoints with a static service key.
type ServiceKeyMiddleware struct {
	key string
}

// NewServiceKeyMiddleware creates a new ServiceKeyMiddleware. An empty key
// disables the guarded endpoints entirely.
func NewServiceKeyMiddleware(key string) *ServiceKeyMiddleware {
	return &ServiceKeyMiddleware{key: key}
}

// Require returns a gin middleware that checks the X-Service-Key header
// against the configured key.
func (m *ServiceKeyMiddleware) Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.key == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "admin endpoints are disabled",
			})
			return
		}

		provided := c.GetHeader("X-Service-Key")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(m.key)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "AUTHENTICATION_ERROR",
				"message": "invalid service key",
			})
			return
		}

		c.Next()
	}
}
