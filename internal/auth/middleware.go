package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const LoginPath = "/admin/login"

// RequireAdmin lets a request through only with a valid session cookie or
// bearer token. API calls get 401; page requests are redirected to the login page.
func RequireAdmin(a *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := a.Verify(sessionToken(c)); err == nil {
			c.Next()
			return
		}

		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "admin login required"})
			return
		}
		c.Redirect(http.StatusFound, LoginPath)
		c.Abort()
	}
}

func sessionToken(c *gin.Context) string {
	if cookie, err := c.Cookie(CookieName); err == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
