package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/threadline/wardrobe-api/internal/model"
	"github.com/threadline/wardrobe-api/internal/service"
)

const userContextKey = "authUser"

// Authenticate extracts the bearer token, verifies it, and re-resolves the
// bound user against the credential store on every request. The attached user
// record has its password hash stripped. Missing, malformed, expired, or
// disabled-account tokens all terminate the request with 401.
func Authenticate(authSvc *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		user, err := authSvc.ResolveToken(c.Request.Context(), header[7:])
		if err != nil {
			if errors.Is(err, service.ErrInvalidToken) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// AdminOnly requires the authenticated user's role, as resolved from the
// store this request, to be admin.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := GetUser(c)
		if user == nil || user.Role != model.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only"})
			return
		}
		c.Next()
	}
}

func GetUser(c *gin.Context) *model.User {
	v, _ := c.Get(userContextKey)
	user, _ := v.(*model.User)
	return user
}
