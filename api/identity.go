package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	UserIDHeader  = "X-User-ID"
	userIDContext = "user_id"
)

// RequireUser takes the caller's id from the X-User-ID header, which the
// gateway in front of the service sets after authenticating the request.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(UserIDHeader))
		if id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "missing " + UserIDHeader + " header", Code: "unauthenticated"})
			return
		}
		c.Set(userIDContext, id)
		c.Next()
	}
}

func userID(c *gin.Context) string {
	return c.GetString(userIDContext)
}
