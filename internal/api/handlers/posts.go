// SPDX-License-Identifier: AGPL-3.0-only
package handlers

import (
	"net/http"

	"github.com/fluffyriot/bookshare/internal/feed"
	"github.com/fluffyriot/bookshare/internal/helpers"
	"github.com/fluffyriot/bookshare/internal/models"
	"github.com/gin-gonic/gin"
)

type postView struct {
	models.PostRecord
	PostImageURL    string `json:"post_image_url,omitempty"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`
	Pending         bool   `json:"pending"`
}

type contentRequest struct {
	Content string `json:"content" form:"content"`
}

func (h *Handler) viewPost(p models.PostRecord) postView {
	base := h.App.Config.APIURL
	postURL, _ := helpers.ConvImageToURL(base, "post", p.PostImage)
	avatarURL, _ := helpers.ConvImageToURL(base, "profile", p.ProfileImage)
	return postView{
		PostRecord:      p,
		PostImageURL:    postURL,
		ProfileImageURL: avatarURL,
		Pending:         h.App.Reconciler.Pending(p.ID),
	}
}

func (h *Handler) viewPage(page models.FeedPage) gin.H {
	posts := make([]postView, 0, len(page.Posts))
	for _, p := range page.Posts {
		posts = append(posts, h.viewPost(p))
	}
	return gin.H{
		"posts":    posts,
		"cursor":   page.Cursor,
		"has_more": page.HasMore,
	}
}

// feedHandler serves a page snapshot, loading the first page when the store
// is untouched or ?reload=true asks for a fresh start.
func (h *Handler) feedHandler(store *feed.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Query("reload") == "true" {
			store.Reset()
		}
		if store.Cursor() == 0 && store.Len() == 0 {
			if err := store.Load(c.Request.Context(), 0); err != nil {
				h.fail(c, "load "+store.Name(), err)
				return
			}
		}
		c.JSON(http.StatusOK, h.viewPage(store.Page()))
	}
}

func (h *Handler) loadMoreHandler(store *feed.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := store.LoadMore(c.Request.Context()); err != nil {
			h.fail(c, "load more "+store.Name(), err)
			return
		}
		c.JSON(http.StatusOK, h.viewPage(store.Page()))
	}
}

func (h *Handler) TimelineHandler(c *gin.Context) { h.feedHandler(h.App.Timeline)(c) }

func (h *Handler) TimelineMoreHandler(c *gin.Context) { h.loadMoreHandler(h.App.Timeline)(c) }

func (h *Handler) MyPostsHandler(c *gin.Context) { h.feedHandler(h.App.MyPosts)(c) }

func (h *Handler) MyPostsMoreHandler(c *gin.Context) { h.loadMoreHandler(h.App.MyPosts)(c) }

// CreatePostHandler accepts a multipart form with content and an optional
// post_picture file.
func (h *Handler) CreatePostHandler(c *gin.Context) {
	content := c.PostForm("content")
	picture, ok := h.formImage(c, "post_picture")
	if !ok {
		return
	}

	post, err := h.App.Reconciler.CreatePost(c.Request.Context(), content, picture)
	if err != nil {
		h.fail(c, "create post", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"post": h.viewPost(post)})
}

func (h *Handler) PostDetailHandler(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	d, list, err := h.App.OpenPost(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "open post", err)
		return
	}

	post, found := h.App.Detail.Get(id)
	if !found {
		post = d.Post
	}
	c.JSON(http.StatusOK, gin.H{
		"post":     h.viewPost(post),
		"comments": h.viewComments(list.Comments()),
	})
}

func (h *Handler) EditPostHandler(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req contentRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := h.App.Reconciler.EditPost(c.Request.Context(), id, req.Content); err != nil {
		h.fail(c, "edit post", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post updated"})
}

func (h *Handler) DeletePostHandler(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.App.Reconciler.DeletePost(c.Request.Context(), id); err != nil {
		h.fail(c, "delete post", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted"})
}

// ToggleLikeHandler flips the viewer's like and returns the post as it
// stands afterwards, rolled back or not.
func (h *Handler) ToggleLikeHandler(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.App.Reconciler.ToggleLike(c.Request.Context(), id); err != nil {
		h.fail(c, "toggle like", err)
		return
	}

	post, found := h.lookup(id)
	if !found {
		c.JSON(http.StatusOK, gin.H{"message": "Like toggled"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": h.viewPost(post)})
}

func (h *Handler) lookup(id int64) (models.PostRecord, bool) {
	for _, s := range []*feed.Store{h.App.Timeline, h.App.MyPosts, h.App.Detail} {
		if p, ok := s.Get(id); ok {
			return p, true
		}
	}
	return models.PostRecord{}, false
}
