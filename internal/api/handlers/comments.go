// SPDX-License-Identifier: AGPL-3.0-only
package handlers

import (
	"net/http"

	"github.com/fluffyriot/bookshare/internal/helpers"
	"github.com/fluffyriot/bookshare/internal/models"
	"github.com/gin-gonic/gin"
)

type commentView struct {
	models.CommentRecord
	ProfileImageURL string `json:"profile_image_url,omitempty"`
}

func (h *Handler) viewComments(comments []models.CommentRecord) []commentView {
	out := make([]commentView, 0, len(comments))
	for _, cm := range comments {
		url, _ := helpers.ConvImageToURL(h.App.Config.APIURL, "profile", cm.ProfileImage)
		out = append(out, commentView{CommentRecord: cm, ProfileImageURL: url})
	}
	return out
}

func (h *Handler) AddCommentHandler(c *gin.Context) {
	postID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req contentRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	cm, err := h.App.Reconciler.AddComment(c.Request.Context(), postID, req.Content)
	if err != nil {
		h.fail(c, "add comment", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comment": h.viewComments([]models.CommentRecord{cm})[0]})
}

func (h *Handler) EditCommentHandler(c *gin.Context) {
	postID, ok := idParam(c, "id")
	if !ok {
		return
	}
	commentID, ok := idParam(c, "comment_id")
	if !ok {
		return
	}
	var req contentRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := h.App.Reconciler.EditComment(c.Request.Context(), postID, commentID, req.Content); err != nil {
		h.fail(c, "edit comment", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment updated"})
}

func (h *Handler) DeleteCommentHandler(c *gin.Context) {
	postID, ok := idParam(c, "id")
	if !ok {
		return
	}
	commentID, ok := idParam(c, "comment_id")
	if !ok {
		return
	}

	if err := h.App.Reconciler.DeleteComment(c.Request.Context(), postID, commentID); err != nil {
		h.fail(c, "delete comment", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted"})
}
