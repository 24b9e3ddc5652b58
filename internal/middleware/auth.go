// SPDX-License-Identifier: AGPL-3.0-only
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Viewer reports the user the backend session belongs to.
type Viewer interface {
	UserID() (int64, bool)
}

// AuthMiddleware lets a request through only when the browser cookie names
// the same user the client is signed in as.
func AuthMiddleware(v Viewer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isPublicRoute(c.Request.URL.Path) {
			c.Next()
			return
		}

		session := sessions.Default(c)
		cookieID, ok := session.Get("user_id").(int64)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not logged in"})
			return
		}

		uid, signedIn := v.UserID()
		if !signedIn || uid != cookieID {
			session.Clear()
			session.Save()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session expired"})
			return
		}

		c.Set("user_id", uid)
		c.Next()
	}
}

func isPublicRoute(path string) bool {
	publicPrefixes := []string{
		"/login",
		"/register",
		"/health",
		"/metrics",
	}

	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
