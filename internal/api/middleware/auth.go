// server/internal/api/middleware/auth.go
package middleware

import (
	"context"
	"net/http"
	"strings"

	"car-listing-api-server/internal/models"

	"github.com/gin-gonic/gin"
)

const userContextKey = "user"

type TokenParser interface {
	Parse(tokenString string) (string, error)
}

type UserFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// Authenticate resolves the bearer token to a user and stores it in the context;
// every failure ends the request with 401.
func Authenticate(tokens TokenParser, users UserFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if authHeader == "" || tokenString == "" || tokenString == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "No authentication token, access denied"})
			return
		}

		userID, err := tokens.Parse(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Token is not valid"})
			return
		}

		user, err := users.FindByID(c.Request.Context(), userID)
		if err != nil || user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Token is not valid"})
			return
		}
		user.Password = ""

		c.Set(userContextKey, user)
		c.Next()
	}
}

// CurrentUser returns the user stored by Authenticate.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}

// SetCurrentUser is used by tests and by callers that resolve identity
// elsewhere.
func SetCurrentUser(c *gin.Context, user *models.User) {
	c.Set(userContextKey, user)
}
