// SPDX-License-Identifier: AGPL-3.0-only
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fluffyriot/bookshare/internal/app"
	"github.com/fluffyriot/bookshare/internal/helpers"
	"github.com/fluffyriot/bookshare/internal/models"
	"github.com/fluffyriot/bookshare/internal/stats"
	"golang.org/x/term"
)

const previewWidth = 72

// ReadPassword prompts on a terminal without echo. When stdin is not a
// terminal the first line of stdin is used.
func ReadPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Print(prompt)
	b, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}

func HandleSignIn(ctx context.Context, a *app.Container, email, password string) error {
	if email == "" {
		return errors.New("--email is required")
	}
	u, err := a.SignIn(ctx, email, password)
	if err != nil {
		return fmt.Errorf("sign in failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Signed in as %s\n", u.Username)
	return nil
}

// HandleTimeline prints up to pages pages of the timeline followed by a
// summary line.
func HandleTimeline(ctx context.Context, a *app.Container, pages int, out io.Writer) error {
	if pages < 1 {
		pages = 1
	}
	if err := a.Timeline.Load(ctx, 0); err != nil {
		return err
	}
	for i := 1; i < pages && a.Timeline.HasMore(); i++ {
		if err := a.Timeline.LoadMore(ctx); err != nil {
			return err
		}
	}

	posts := a.Timeline.Posts()
	for _, p := range posts {
		fmt.Fprintln(out, formatPost(p))
	}

	s := stats.Summarize(posts)
	fmt.Fprintf(out, "-- %d posts by %d authors, %d likes, %d comments\n",
		s.Posts, s.Authors, s.TotalLikes, s.TotalComments)
	return nil
}

func formatPost(p models.PostRecord) string {
	heart := "♡"
	if p.AlreadyLiked {
		heart = "♥"
	}
	text := helpers.Truncate(helpers.StripHTMLToText(p.Content), previewWidth)
	return fmt.Sprintf("#%d @%s: %s [%s %d, 💬 %d]", p.ID, p.Username, text, heart, p.LikedCount, p.CommentedCount)
}

// HandleChat joins the room, prints history and live messages, and speaks
// every line read from in. "/quit" or EOF leaves the room.
func HandleChat(ctx context.Context, a *app.Container, in io.Reader, out io.Writer) error {
	// everything printed comes from the message log, so history and live
	// messages appear once and in log order
	var mu sync.Mutex
	printed := 0
	flush := func() {
		mu.Lock()
		defer mu.Unlock()
		msgs := a.Messages.Messages()
		if printed > len(msgs) {
			printed = 0
		}
		for _, m := range msgs[printed:] {
			fmt.Fprintln(out, formatMessage(m))
		}
		printed = len(msgs)
	}

	r, err := a.OpenChat(ctx, func(models.ChatEnvelope) { flush() })
	if err != nil {
		return fmt.Errorf("failed to join chat: %w", err)
	}
	defer a.CloseChat()
	flush()

	done := make(chan struct{})
	defer close(done)

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-done:
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.Done():
			return r.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if line == "/quit" {
				return nil
			}
			if err := r.Send(line); err != nil {
				return err
			}
		}
	}
}

func formatMessage(m models.ChatMessage) string {
	return fmt.Sprintf("[%d] user %d: %s", m.ID, m.UserID, m.Content)
}
