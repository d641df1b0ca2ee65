package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const userIDKey = "user_id"

// RequireUser reads the authenticated user identity supplied by the auth
// layer in front of this service (X-User-ID) and denies requests without one.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.ParseInt(c.GetHeader("X-User-ID"), 10, 64)
		if err != nil || userID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"notice":   "Please log in to continue.",
				"redirect": "/login",
			})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserID returns the authenticated user id set by RequireUser.
func UserID(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}

// RequireAdmin gates the admin console routes on the shared admin token.
func RequireAdmin(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("X-Admin-Token") != token {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"notice":   "Admin access required.",
				"redirect": "/",
			})
			return
		}
		c.Next()
	}
}
