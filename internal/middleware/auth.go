package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tariffsnap/tariffsnap-golang/internal/auth"
	"github.com/tariffsnap/tariffsnap-golang/internal/models"
)

// UserLoader resolves a token subject to the full entitlement record.
// Implemented by store.ProfileStore; faked in tests.
type UserLoader interface {
	LoadUser(c *gin.Context, id int64) (*models.User, error)
}

// ContextUserKey is where AuthMiddleware stores the loaded user record.
const ContextUserKey = "currentUser"

// AuthMiddleware validates the bearer token and loads the entitlement
// record for the request. The record rides the request context explicitly;
// nothing ambient or global.
func AuthMiddleware(loader UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format (must be Bearer)"})
			c.Abort()
			return
		}

		userID, err := auth.ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		user, err := loader.LoadUser(c, userID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Account not found"})
			c.Abort()
			return
		}

		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// CurrentUser pulls the loaded record out of the request context. Returns
// nil when the route is public and no middleware ran.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil
	}
	user, ok := v.(*models.User)
	if !ok {
		return nil
	}
	return user
}
