// SPDX-License-Identifier: AGPL-3.0-only
package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/fluffyriot/bookshare/internal/app"
	"github.com/fluffyriot/bookshare/internal/app/apptest"
	"github.com/fluffyriot/bookshare/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testClient struct {
	t    *testing.T
	base string
	http *http.Client
}

func newTestServer(t *testing.T, posts int) (*testClient, *apptest.Backend, *app.Container) {
	t.Helper()
	b := apptest.NewBackend(t, posts)
	a := app.NewContainer(&config.AppConfig{
		APIURL:         b.URL(),
		CableURL:       b.CableURL(),
		RequestTimeout: 5 * time.Second,
	})
	t.Cleanup(a.Shutdown)

	srv := httptest.NewServer(NewHandler(a).Router("test-secret-test-secret-test-sec"))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testClient{t: t, base: srv.URL, http: &http.Client{Jar: jar}}, b, a
}

func (tc *testClient) do(method, path string, body any) (int, map[string]any) {
	tc.t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(tc.t, err)
		r = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, tc.base+path, r)
	require.NoError(tc.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return tc.send(req)
}

func (tc *testClient) send(req *http.Request) (int, map[string]any) {
	tc.t.Helper()
	resp, err := tc.http.Do(req)
	require.NoError(tc.t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func (tc *testClient) login() {
	tc.t.Helper()
	code, _ := tc.do(http.MethodPost, "/login", map[string]string{
		"email":    apptest.Email,
		"password": apptest.Password,
	})
	require.Equal(tc.t, http.StatusOK, code)
}

func posts(body map[string]any) []any {
	p, _ := body["posts"].([]any)
	return p
}

func TestProtectedRoutesNeedLogin(t *testing.T) {
	tc, _, _ := newTestServer(t, 3)

	code, _ := tc.do(http.MethodGet, "/api/feed", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body := tc.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["signed_in"])

	code, _ = tc.do(http.MethodPost, "/login", map[string]string{"email": apptest.Email, "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body = tc.do(http.MethodPost, "/login", map[string]string{"email": "", "password": ""})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.ElementsMatch(t, []any{"email", "password"}, body["required"])
}

func TestFeedPagingAndLike(t *testing.T) {
	tc, b, _ := newTestServer(t, 25)
	tc.login()

	code, body := tc.do(http.MethodGet, "/api/feed", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, posts(body), 20)
	assert.Equal(t, true, body["has_more"])

	code, body = tc.do(http.MethodPost, "/api/feed/more", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, posts(body), 25)
	assert.Equal(t, false, body["has_more"])

	code, body = tc.do(http.MethodPost, "/api/posts/25/like", nil)
	require.Equal(t, http.StatusOK, code)
	post := body["post"].(map[string]any)
	assert.Equal(t, float64(1), post["liked_count"])
	assert.Equal(t, true, post["already_liked"])

	b.FailLikes(true)
	code, _ = tc.do(http.MethodPost, "/api/posts/25/like", nil)
	assert.Equal(t, http.StatusBadGateway, code)

	_, body = tc.do(http.MethodGet, "/api/feed", nil)
	first := posts(body)[0].(map[string]any)
	assert.Equal(t, float64(1), first["liked_count"], "failed unlike is rolled back")

	code, _ = tc.do(http.MethodPost, "/api/posts/999/like", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestPostDetailAndComments(t *testing.T) {
	tc, _, _ := newTestServer(t, 3)
	tc.login()
	tc.do(http.MethodGet, "/api/feed", nil)

	code, body := tc.do(http.MethodPost, "/api/posts/2/comments", map[string]string{"content": " "})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, []any{"content"}, body["required"])

	code, body = tc.do(http.MethodGet, "/api/posts/2", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["comments"])

	code, body = tc.do(http.MethodPost, "/api/posts/2/comments", map[string]string{"content": "great read"})
	require.Equal(t, http.StatusCreated, code)
	commentID := body["comment"].(map[string]any)["id"].(float64)

	_, body = tc.do(http.MethodGet, "/api/posts/2", nil)
	assert.Len(t, body["comments"], 1)
	assert.Equal(t, float64(1), body["post"].(map[string]any)["commented_count"])

	path := "/api/posts/2/comments/" + jsonInt(commentID)
	code, _ = tc.do(http.MethodPatch, path, map[string]string{"content": "edited"})
	assert.Equal(t, http.StatusOK, code)
	code, _ = tc.do(http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusOK, code)

	_, body = tc.do(http.MethodGet, "/api/feed", nil)
	for _, p := range posts(body) {
		if p.(map[string]any)["id"] == float64(2) {
			assert.Equal(t, float64(0), p.(map[string]any)["commented_count"])
		}
	}

	code, _ = tc.do(http.MethodGet, "/api/posts/abc", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func jsonInt(f float64) string {
	raw, _ := json.Marshal(int64(f))
	return string(raw)
}

func TestCreateEditDeletePost(t *testing.T) {
	tc, _, _ := newTestServer(t, 2)
	tc.login()
	tc.do(http.MethodGet, "/api/feed", nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("content", "finished dune"))
	require.NoError(t, mw.Close())
	req, _ := http.NewRequest(http.MethodPost, tc.base+"/api/posts", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	code, body := tc.send(req)
	require.Equal(t, http.StatusCreated, code)
	id := body["post"].(map[string]any)["id"].(float64)

	_, body = tc.do(http.MethodGet, "/api/feed", nil)
	require.Len(t, posts(body), 3)
	assert.Equal(t, id, posts(body)[0].(map[string]any)["id"])

	path := "/api/posts/" + jsonInt(id)
	code, _ = tc.do(http.MethodPatch, path, map[string]string{"content": "finished dune messiah"})
	assert.Equal(t, http.StatusOK, code)

	code, _ = tc.do(http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusOK, code)
	_, body = tc.do(http.MethodGet, "/api/feed", nil)
	assert.Len(t, posts(body), 2)
}

func TestUploadRejectsUnsupportedImage(t *testing.T) {
	tc, _, _ := newTestServer(t, 0)
	tc.login()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("content", "cover")
	fw, _ := mw.CreateFormFile("post_picture", "cover.gif")
	fw.Write([]byte("GIF89a"))
	mw.Close()
	req, _ := http.NewRequest(http.MethodPost, tc.base+"/api/posts", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	code, _ := tc.send(req)
	assert.Equal(t, http.StatusUnsupportedMediaType, code)
}

func TestChatOverHTTP(t *testing.T) {
	tc, _, _ := newTestServer(t, 0)
	tc.login()

	code, _ := tc.do(http.MethodPost, "/api/messages", map[string]string{"body": "early"})
	assert.Equal(t, http.StatusConflict, code, "no subscription yet")

	code, body := tc.do(http.MethodGet, "/api/messages", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "subscribed", body["state"])
	assert.Len(t, body["messages"], 1)

	code, _ = tc.do(http.MethodPost, "/api/messages", map[string]string{"body": "hello"})
	assert.Equal(t, http.StatusAccepted, code)

	require.Eventually(t, func() bool {
		_, body := tc.do(http.MethodGet, "/api/messages", nil)
		msgs, _ := body["messages"].([]any)
		return len(msgs) == 2
	}, 2*time.Second, 10*time.Millisecond)

	code, _ = tc.do(http.MethodDelete, "/api/messages", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestLogoutEndsSession(t *testing.T) {
	tc, _, a := newTestServer(t, 1)
	tc.login()

	code, body := tc.do(http.MethodGet, "/api/me", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "mika", body["user"].(map[string]any)["username"])

	code, _ = tc.do(http.MethodPost, "/logout", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.False(t, a.Session.SignedIn())

	code, _ = tc.do(http.MethodGet, "/api/me", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestRegister(t *testing.T) {
	tc, _, _ := newTestServer(t, 0)

	code, body := tc.do(http.MethodPost, "/register", map[string]string{
		"username": "nova", "email": "nova@example.com", "password": "password1", "confirm_password": "password2",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.ElementsMatch(t, []any{"password", "confirm_password"}, body["mismatch"])

	code, _ = tc.do(http.MethodPost, "/register", map[string]string{
		"username": "mika", "email": apptest.Email, "password": "password1", "confirm_password": "password1",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _ = tc.do(http.MethodPost, "/register", map[string]string{
		"username": "nova", "email": "nova@example.com", "password": "password1", "confirm_password": "password1",
	})
	assert.Equal(t, http.StatusCreated, code)
}

func TestProfileAndStats(t *testing.T) {
	tc, _, _ := newTestServer(t, 3)
	tc.login()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("username", "mika")
	mw.WriteField("self_introduction", strings.Repeat("a", 161))
	mw.Close()
	req, _ := http.NewRequest(http.MethodPost, tc.base+"/api/me", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	code, body := tc.send(req)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, []any{"self_introduction"}, body["invalid"])

	tc.do(http.MethodGet, "/api/feed", nil)
	code, body = tc.do(http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(3), body["timeline"].(map[string]any)["posts"])

	code, body = tc.do(http.MethodPost, "/api/refresh", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(0), body["updated"])
}

func TestMetricsAndHeaders(t *testing.T) {
	tc, _, _ := newTestServer(t, 0)

	resp, err := tc.http.Get(tc.base + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "bookshare_")
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}
