// SPDX-License-Identifier: AGPL-3.0-only
package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fluffyriot/bookshare/internal/app"
	"github.com/fluffyriot/bookshare/internal/app/apptest"
	"github.com/fluffyriot/bookshare/internal/config"
	"github.com/fluffyriot/bookshare/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func signedIn(t *testing.T, posts int) (*app.Container, *apptest.Backend) {
	t.Helper()
	b := apptest.NewBackend(t, posts)
	a := app.NewContainer(&config.AppConfig{
		APIURL:         b.URL(),
		CableURL:       b.CableURL(),
		RequestTimeout: 5 * time.Second,
	})
	t.Cleanup(a.Shutdown)
	require.NoError(t, HandleSignIn(context.Background(), a, apptest.Email, apptest.Password))
	return a, b
}

func TestHandleSignInRequiresEmail(t *testing.T) {
	a := app.NewContainer(&config.AppConfig{APIURL: "http://127.0.0.1:1", RequestTimeout: time.Second})
	assert.ErrorContains(t, HandleSignIn(context.Background(), a, "", "x"), "--email")
}

func TestHandleTimeline(t *testing.T) {
	a, _ := signedIn(t, 25)

	var out bytes.Buffer
	require.NoError(t, HandleTimeline(context.Background(), a, 2, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 26)
	assert.True(t, strings.HasPrefix(lines[0], "#25 @mika: post 25"))
	assert.Equal(t, "-- 25 posts by 1 authors, 0 likes, 0 comments", lines[25])
}

func TestFormatPostStripsMarkup(t *testing.T) {
	got := formatPost(models.PostRecord{
		ID: 3, Username: "mika", Content: "<p>Loved <b>Dune</b> &amp; more</p>",
		LikedCount: 2, AlreadyLiked: true, CommentedCount: 1,
	})
	assert.Equal(t, "#3 @mika: Loved Dune & more [♥ 2, 💬 1]", got)
}

func TestHandleChat(t *testing.T) {
	a, b := signedIn(t, 0)

	out := &lockedBuffer{}
	in := strings.NewReader("hello room\n\n/quit\nnever sent\n")
	require.NoError(t, HandleChat(context.Background(), a, in, out))

	assert.Contains(t, out.String(), "welcome")
	require.Eventually(t, func() bool { return len(b.Messages()) == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "hello room", b.Messages()[1].Content)

	_, err := a.Chat()
	assert.Error(t, err, "chat is closed when the command returns")
}

func TestHandleChatPrintsLiveMessagesOnce(t *testing.T) {
	a, _ := signedIn(t, 0)

	pr, pw := io.Pipe()
	defer pw.Close()
	out := &lockedBuffer{}

	errCh := make(chan error, 1)
	go func() { errCh <- HandleChat(context.Background(), a, pr, out) }()

	_, err := io.WriteString(pw, "hello room\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "hello room")
	}, 2*time.Second, 5*time.Millisecond)

	_, err = io.WriteString(pw, "/quit\n")
	require.NoError(t, err)
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("chat did not exit on /quit")
	}

	assert.Equal(t, 1, strings.Count(out.String(), "welcome"))
	assert.Equal(t, 1, strings.Count(out.String(), "hello room"))
}
