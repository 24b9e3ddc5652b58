// SPDX-License-Identifier: AGPL-3.0-only
package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeViewer struct {
	id       int64
	signedIn bool
}

func (f *fakeViewer) UserID() (int64, bool) { return f.id, f.signedIn }

func newRouter(v Viewer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(sessions.Sessions("test", cookie.NewStore([]byte("secret"))))
	r.Use(RequestIDMiddleware())
	r.Use(SecurityHeadersMiddleware())
	r.Use(AuthMiddleware(v))

	r.POST("/login", func(c *gin.Context) {
		s := sessions.Default(c)
		s.Set("user_id", int64(9))
		s.Save()
		c.Status(http.StatusNoContent)
	})
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetInt64("user_id")})
	})
	return r
}

func login(t *testing.T, r *gin.Engine) []*http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	require.Equal(t, http.StatusNoContent, w.Code)
	return w.Result().Cookies()
}

func get(r *gin.Engine, path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddlewareRejectsAnonymous(t *testing.T) {
	r := newRouter(&fakeViewer{id: 9, signedIn: true})
	w := get(r, "/api/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Not logged in")
}

func TestAuthMiddlewareAcceptsMatchingSession(t *testing.T) {
	r := newRouter(&fakeViewer{id: 9, signedIn: true})
	w := get(r, "/api/me", login(t, r))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":9}`, w.Body.String())
}

func TestAuthMiddlewareRejectsStaleCookie(t *testing.T) {
	v := &fakeViewer{id: 9, signedIn: true}
	r := newRouter(v)
	cookies := login(t, r)

	v.signedIn = false
	w := get(r, "/api/me", cookies)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Session expired")

	v.signedIn, v.id = true, 10
	assert.Equal(t, http.StatusUnauthorized, get(r, "/api/me", cookies).Code)
}

func TestPublicRoutes(t *testing.T) {
	assert.True(t, isPublicRoute("/login"))
	assert.True(t, isPublicRoute("/health"))
	assert.True(t, isPublicRoute("/metrics"))
	assert.False(t, isPublicRoute("/api/feed"))
	assert.False(t, isPublicRoute("/logout"))
}

func TestHeaders(t *testing.T) {
	r := newRouter(&fakeViewer{})

	w := get(r, "/health", nil)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Header().Get("X-Request-ID"))
}
