package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"guru-chat/internal/infrastructure/auth"
)

const userIDKey = "userId"

// TokenValidator is satisfied by *auth.Authenticator.
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// AuthMiddleware resolves the caller from a bearer token. Browsers cannot set
// headers on websocket upgrades, so a "token" query parameter is accepted too.
func AuthMiddleware(v TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := auth.BearerToken(c.GetHeader("Authorization"))
		if !ok {
			token = c.Query("token")
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}

		claims, err := v.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		c.Set(userIDKey, claims.UserID())
		c.Next()
	}
}

// UserID returns the authenticated caller, or "" outside AuthMiddleware.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// SetUserID is for tests and internal callers that authenticate by other means.
func SetUserID(c *gin.Context, id string) {
	c.Set(userIDKey, id)
}
