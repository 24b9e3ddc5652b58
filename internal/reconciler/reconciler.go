// SPDX-License-Identifier: AGPL-3.0-only
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/fluffyriot/bookshare/internal/feed"
	"github.com/fluffyriot/bookshare/internal/fetcher"
	"github.com/fluffyriot/bookshare/internal/helpers"
	"github.com/fluffyriot/bookshare/internal/models"
	"github.com/fluffyriot/bookshare/internal/stats"
)

var (
	ErrToggleInFlight = errors.New("a like toggle for this post is still in flight")
	ErrUnknownPost    = errors.New("post is not in the feed")
	ErrNotSignedIn    = errors.New("not signed in")
)

// API is the part of the backend the reconciler talks to.
type API interface {
	Like(ctx context.Context, userID, postID int64) error
	Unlike(ctx context.Context, userID, postID int64) error
	CreateComment(ctx context.Context, userID, postID int64, content string) (models.CommentRecord, error)
	EditComment(ctx context.Context, commentID int64, content string) error
	DeleteComment(ctx context.Context, commentID int64) error
	CreatePost(ctx context.Context, p fetcher.NewPost) (models.PostRecord, error)
	EditPost(ctx context.Context, postID int64, content string) error
	DeletePost(ctx context.Context, postID int64) error
}

// Viewer reports who is signed in.
type Viewer interface {
	UserID() (int64, bool)
}

// Reconciler applies user intents to a feed store and keeps it in line with
// the backend. Mutations address posts by id, never by position.
type Reconciler struct {
	api    API
	viewer Viewer
	feeds  []*feed.Store

	mu       sync.Mutex
	inflight map[int64]struct{}
	comments map[int64]*feed.CommentList
}

// New returns a reconciler that patches every store in feeds. A post may be
// present in more than one store (timeline and my posts); each copy is
// patched.
func New(api API, viewer Viewer, feeds ...*feed.Store) *Reconciler {
	return &Reconciler{
		api:      api,
		viewer:   viewer,
		feeds:    feeds,
		inflight: make(map[int64]struct{}),
		comments: make(map[int64]*feed.CommentList),
	}
}

// ToggleLike flips the viewer's like on postID. The store is patched before
// the request is sent and the patch is reverted if the request fails. A
// second toggle on the same post is rejected until the first resolves.
func (r *Reconciler) ToggleLike(ctx context.Context, postID int64) error {
	uid, ok := r.viewer.UserID()
	if !ok {
		return ErrNotSignedIn
	}

	pre, ok := r.lookup(postID)
	if !ok {
		return ErrUnknownPost
	}

	if !r.acquire(postID) {
		stats.RejectedToggles.Inc()
		return ErrToggleInFlight
	}
	defer r.release(postID)

	// re-read under the guard so a toggle that just finished is accounted for
	pre, ok = r.lookup(postID)
	if !ok {
		return ErrUnknownPost
	}

	undo := r.patchUndo(postID, togglePatch(pre.AlreadyLiked))

	var err error
	op := "like"
	if pre.AlreadyLiked {
		op = "unlike"
		err = r.api.Unlike(ctx, uid, postID)
	} else {
		err = r.api.Like(ctx, uid, postID)
	}

	if err != nil {
		r.revert(postID, undo)
		stats.Rollbacks.WithLabelValues(op).Inc()
		log.Printf("Reconciler: %s on post %d failed, reverted: %v", op, postID, err)
		return fmt.Errorf("%s post %d: %w", op, postID, err)
	}

	return nil
}

func togglePatch(currentlyLiked bool) feed.Patch {
	delta := 1
	if currentlyLiked {
		delta = -1
	}
	return feed.Patch{
		AlreadyLiked: feed.Liked(!currentlyLiked),
		LikeDelta:    delta,
	}
}

// Pending reports whether a like toggle on postID is waiting for the
// backend.
func (r *Reconciler) Pending(postID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.inflight[postID]
	return ok
}

func (r *Reconciler) AddComment(ctx context.Context, postID int64, content string) (models.CommentRecord, error) {
	if err := helpers.RequireFields(map[string]string{"content": content}); err != nil {
		return models.CommentRecord{}, err
	}
	uid, ok := r.viewer.UserID()
	if !ok {
		return models.CommentRecord{}, ErrNotSignedIn
	}

	c, err := r.api.CreateComment(ctx, uid, postID, content)
	if err != nil {
		log.Printf("Reconciler: failed to comment on post %d: %v", postID, err)
		return models.CommentRecord{}, fmt.Errorf("comment on post %d: %w", postID, err)
	}

	r.patch(postID, feed.Patch{CommentDelta: 1})
	if l := r.commentList(postID); l != nil {
		l.Prepend(c)
	}

	return c, nil
}

func (r *Reconciler) EditComment(ctx context.Context, postID, commentID int64, content string) error {
	if err := helpers.RequireFields(map[string]string{"content": content}); err != nil {
		return err
	}
	if err := r.api.EditComment(ctx, commentID, content); err != nil {
		log.Printf("Reconciler: failed to edit comment %d: %v", commentID, err)
		return fmt.Errorf("edit comment %d: %w", commentID, err)
	}
	if l := r.commentList(postID); l != nil {
		l.SetContent(commentID, content)
	}
	return nil
}

func (r *Reconciler) DeleteComment(ctx context.Context, postID, commentID int64) error {
	if err := r.api.DeleteComment(ctx, commentID); err != nil {
		log.Printf("Reconciler: failed to delete comment %d: %v", commentID, err)
		return fmt.Errorf("delete comment %d: %w", commentID, err)
	}
	if l := r.commentList(postID); l != nil {
		l.RemoveByID(commentID)
	}
	r.patch(postID, feed.Patch{CommentDelta: -1})
	return nil
}

// CreatePost publishes a post and puts it at the top of every feed that has
// loaded a page. Feeds not loaded yet pick it up on their first load.
func (r *Reconciler) CreatePost(ctx context.Context, content string, picture *fetcher.Upload) (models.PostRecord, error) {
	if err := helpers.RequireFields(map[string]string{"content": content}); err != nil {
		return models.PostRecord{}, err
	}
	uid, ok := r.viewer.UserID()
	if !ok {
		return models.PostRecord{}, ErrNotSignedIn
	}

	post, err := r.api.CreatePost(ctx, fetcher.NewPost{
		UserID:  uid,
		Content: content,
		Picture: picture,
	})
	if err != nil {
		log.Printf("Reconciler: failed to create post: %v", err)
		return models.PostRecord{}, fmt.Errorf("create post: %w", err)
	}

	for _, f := range r.feeds {
		if f.Cursor() > 0 {
			f.Prepend(post)
		}
	}
	return post, nil
}

// EditPost replaces the content once the backend accepts it. Concurrent
// edits resolve last-response-wins.
func (r *Reconciler) EditPost(ctx context.Context, postID int64, content string) error {
	if err := helpers.RequireFields(map[string]string{"content": content}); err != nil {
		return err
	}
	if err := r.api.EditPost(ctx, postID, content); err != nil {
		log.Printf("Reconciler: failed to edit post %d: %v", postID, err)
		return fmt.Errorf("edit post %d: %w", postID, err)
	}
	r.patch(postID, feed.Patch{Content: feed.Text(content)})
	return nil
}

func (r *Reconciler) DeletePost(ctx context.Context, postID int64) error {
	if err := r.api.DeletePost(ctx, postID); err != nil {
		log.Printf("Reconciler: failed to delete post %d: %v", postID, err)
		return fmt.Errorf("delete post %d: %w", postID, err)
	}
	for _, f := range r.feeds {
		f.RemoveByID(postID)
	}
	r.CloseComments(postID)
	return nil
}

// OpenComments registers the comment list shown for postID so that new
// comments land in it.
func (r *Reconciler) OpenComments(postID int64, comments []models.CommentRecord) *feed.CommentList {
	l := feed.NewCommentList(postID, comments)
	r.mu.Lock()
	r.comments[postID] = l
	r.mu.Unlock()
	return l
}

func (r *Reconciler) CloseComments(postID int64) {
	r.mu.Lock()
	delete(r.comments, postID)
	r.mu.Unlock()
}

func (r *Reconciler) Comments(postID int64) (*feed.CommentList, bool) {
	l := r.commentList(postID)
	return l, l != nil
}

func (r *Reconciler) commentList(postID int64) *feed.CommentList {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.comments[postID]
}

func (r *Reconciler) acquire(postID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.inflight[postID]; busy {
		return false
	}
	r.inflight[postID] = struct{}{}
	return true
}

func (r *Reconciler) release(postID int64) {
	r.mu.Lock()
	delete(r.inflight, postID)
	r.mu.Unlock()
}

func (r *Reconciler) lookup(postID int64) (models.PostRecord, bool) {
	for _, f := range r.feeds {
		if p, ok := f.Get(postID); ok {
			return p, true
		}
	}
	return models.PostRecord{}, false
}

// patchUndo patches every store holding postID and returns, per store, the
// patch that reverts it.
func (r *Reconciler) patchUndo(postID int64, p feed.Patch) map[*feed.Store]feed.Patch {
	undo := make(map[*feed.Store]feed.Patch, len(r.feeds))
	for _, f := range r.feeds {
		if inv, ok := f.ApplyPatchUndo(postID, p); ok {
			undo[f] = inv
		}
	}
	return undo
}

func (r *Reconciler) revert(postID int64, undo map[*feed.Store]feed.Patch) {
	for f, inv := range undo {
		f.ApplyPatch(postID, inv)
	}
}

func (r *Reconciler) patch(postID int64, p feed.Patch) {
	for _, f := range r.feeds {
		f.ApplyPatch(postID, p)
	}
}
