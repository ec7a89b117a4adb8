package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nayoung-dev/stamprally/internal/helpers"
)

// IdentityMiddleware trusts tokens minted by the external identity
// provider and extracts the authenticated user. The core performs no
// authentication of its own; this is claim extraction only.
func IdentityMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			helpers.RespondWithError(c, http.StatusUnauthorized, "Missing bearer token.")
			c.Abort()
			return
		}

		token, err := jwt.Parse(strings.TrimPrefix(header, "Bearer "), func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			helpers.RespondWithError(c, http.StatusUnauthorized, "Invalid token.")
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			helpers.RespondWithError(c, http.StatusUnauthorized, "Invalid token claims.")
			c.Abort()
			return
		}

		rawUserID, _ := claims["user_id"].(string)
		userID, err := uuid.Parse(rawUserID)
		if err != nil {
			helpers.RespondWithError(c, http.StatusUnauthorized, "Invalid user identity.")
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		if role, ok := claims["role"].(string); ok {
			c.Set("role", role)
		}
		c.Next()
	}
}

// AdminOnly requires the admin role claim.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if role, _ := c.Get("role"); role != "admin" {
			helpers.RespondWithError(c, http.StatusForbidden, "Admin access required.")
			c.Abort()
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user id set by IdentityMiddleware.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil, false
	}
	userID, ok := value.(uuid.UUID)
	return userID, ok
}
