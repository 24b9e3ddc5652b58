// SPDX-License-Identifier: AGPL-3.0-only
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/fluffyriot/bookshare/internal/config"
	"github.com/fluffyriot/bookshare/internal/feed"
	"github.com/fluffyriot/bookshare/internal/fetcher"
	"github.com/fluffyriot/bookshare/internal/helpers"
	"github.com/fluffyriot/bookshare/internal/models"
	"github.com/fluffyriot/bookshare/internal/reconciler"
	"github.com/fluffyriot/bookshare/internal/relay"
	"github.com/fluffyriot/bookshare/internal/session"
	"github.com/fluffyriot/bookshare/internal/worker"
)

var ErrChatClosed = errors.New("chat is not open")

// Container wires one signed-in client session: one session store, one set
// of feeds and at most one chat subscription.
type Container struct {
	Config     *config.AppConfig
	Session    *session.Store
	Client     *fetcher.Client
	Timeline   *feed.Store
	MyPosts    *feed.Store
	Detail     *feed.Store
	Reconciler *reconciler.Reconciler
	Messages   *relay.MessageLog
	Worker     *worker.Worker

	detailID atomic.Int64

	mu         sync.Mutex
	chat       *relay.Relay
	sessionCtx context.Context
	endSession context.CancelFunc
}

func NewContainer(cfg *config.AppConfig) *Container {
	c := &Container{
		Config:   cfg,
		Session:  session.NewStore(),
		Messages: relay.NewMessageLog(),
	}
	c.Client = fetcher.NewClient(cfg.APIURL, cfg.RequestTimeout, c.Session)

	c.Timeline = feed.NewStore("timeline", feed.PageFetcherFunc(func(ctx context.Context, page int) ([]models.PostRecord, error) {
		return c.Client.FetchTimeline(ctx, c.viewerID(), page)
	}))
	c.MyPosts = feed.NewStore("my-posts", feed.PageFetcherFunc(func(ctx context.Context, page int) ([]models.PostRecord, error) {
		return c.Client.FetchMyPosts(ctx, c.viewerID(), page)
	}))
	c.Detail = feed.NewStore("detail", feed.PageFetcherFunc(func(ctx context.Context, page int) ([]models.PostRecord, error) {
		id := c.detailID.Load()
		if id == 0 || page > 0 {
			return nil, nil
		}
		d, err := c.Client.GetPostDetail(ctx, id, c.viewerID())
		if err != nil {
			return nil, err
		}
		return []models.PostRecord{d.Post}, nil
	}))

	c.Reconciler = reconciler.New(c.Client, c.Session, c.Timeline, c.MyPosts, c.Detail)
	c.Worker = worker.NewWorker(c.Reconciler.Pending, c.Timeline, c.MyPosts, c.Detail)
	c.sessionCtx, c.endSession = context.WithCancel(context.Background())

	return c
}

func (c *Container) viewerID() int64 {
	id, _ := c.Session.UserID()
	return id
}

// SignIn exchanges credentials for tokens and loads the current user.
func (c *Container) SignIn(ctx context.Context, email, password string) (models.User, error) {
	if err := helpers.RequireFields(map[string]string{"email": email, "password": password}); err != nil {
		return models.User{}, err
	}

	creds, err := c.Client.SignIn(ctx, email, password)
	if err != nil {
		return models.User{}, err
	}
	c.Session.Dispatch(session.Action{Type: session.ActionSignedIn, Credentials: creds})

	user, err := c.Client.GetUser(ctx, creds.UID)
	if err != nil {
		c.Session.Dispatch(session.Action{Type: session.ActionLogout})
		return models.User{}, fmt.Errorf("load current user: %w", err)
	}
	c.Session.Dispatch(session.Action{Type: session.ActionFetchSuccess, User: &user})

	c.mu.Lock()
	c.endSession()
	c.sessionCtx, c.endSession = context.WithCancel(context.Background())
	c.mu.Unlock()

	log.Printf("App: signed in as %s (id=%d)", user.Username, user.ID)
	return user, nil
}

// Register validates the form locally before creating the account.
func (c *Container) Register(ctx context.Context, username, email, password, confirm string) error {
	if err := helpers.ValidateRegistration(username, email, password, confirm); err != nil {
		return err
	}
	return c.Client.Register(ctx, username, email, password)
}

// UpdateProfile validates and saves profile changes, then updates the
// session's user.
func (c *Container) UpdateProfile(ctx context.Context, username, selfIntro string, image *fetcher.Upload) (models.User, error) {
	uid, ok := c.Session.UserID()
	if !ok {
		return models.User{}, reconciler.ErrNotSignedIn
	}
	if err := helpers.ValidateProfile(username, selfIntro); err != nil {
		return models.User{}, err
	}

	user, err := c.Client.UpdateUser(ctx, fetcher.ProfileUpdate{
		UserID:           uid,
		Username:         username,
		SelfIntroduction: selfIntro,
		ProfileImage:     image,
	})
	if err != nil {
		return models.User{}, err
	}
	c.Session.Dispatch(session.Action{Type: session.ActionUpdateUser, User: &user})
	return user, nil
}

// SignOut tears down everything scoped to the session.
func (c *Container) SignOut() {
	c.mu.Lock()
	c.endSession()
	chat := c.chat
	c.chat = nil
	c.mu.Unlock()

	if chat != nil {
		chat.Close()
	}

	c.Session.Dispatch(session.Action{Type: session.ActionLogout})
	c.Timeline.Reset()
	c.MyPosts.Reset()
	c.Detail.Reset()
	c.detailID.Store(0)
	c.Messages.Seed(nil)
	log.Println("App: signed out")
}

// OpenPost loads a post with its comments into the detail view.
func (c *Container) OpenPost(ctx context.Context, postID int64) (models.PostDetail, *feed.CommentList, error) {
	d, err := c.Client.GetPostDetail(ctx, postID, c.viewerID())
	if err != nil {
		return models.PostDetail{}, nil, err
	}

	if prev := c.detailID.Swap(postID); prev != 0 && prev != postID {
		c.Reconciler.CloseComments(prev)
	}
	c.Detail.Reset()
	c.Detail.Prepend(d.Post)

	return d, c.Reconciler.OpenComments(postID, d.Comments), nil
}

func (c *Container) DetailID() int64 {
	return c.detailID.Load()
}

// OpenChat seeds the message log and subscribes to the room. At most one
// subscription exists per session; calling it again returns the open one.
// handlers run after the log is appended, for every message from the
// moment the subscription is confirmed.
func (c *Container) OpenChat(ctx context.Context, handlers ...relay.Handler) (*relay.Relay, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.chat != nil && c.chat.State() == relay.Subscribed {
		for _, h := range handlers {
			c.chat.OnMessage(h)
		}
		return c.chat, nil
	}

	history, err := c.Client.GetMessages(ctx)
	if err != nil {
		return nil, err
	}
	c.Messages.Seed(history)

	header := http.Header{}
	header.Set("Origin", c.Config.APIURL)
	c.Session.ApplyHeaders(header)

	r := relay.New(c.Config.CableURL, relay.DefaultChannel, header)
	r.OnMessage(c.Messages.Handler())
	for _, h := range handlers {
		r.OnMessage(h)
	}

	// the subscription lives as long as the session, not the request
	if err := r.Subscribe(c.sessionCtx); err != nil {
		return nil, err
	}

	c.chat = r
	return r, nil
}

// Chat returns the open subscription.
func (c *Container) Chat() (*relay.Relay, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.chat == nil || c.chat.State() != relay.Subscribed {
		return nil, ErrChatClosed
	}
	return c.chat, nil
}

func (c *Container) CloseChat() {
	c.mu.Lock()
	chat := c.chat
	c.chat = nil
	c.mu.Unlock()

	if chat != nil {
		chat.Close()
	}
}

// Shutdown stops background work. It is safe to call once at exit.
func (c *Container) Shutdown() {
	if c.Worker.IsActive() {
		c.Worker.Stop()
	}
	c.CloseChat()
}
