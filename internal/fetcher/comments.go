// SPDX-License-Identifier: AGPL-3.0-only
package fetcher

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fluffyriot/bookshare/internal/models"
)

func (c *Client) CreateComment(ctx context.Context, userID, postID int64, content string) (models.CommentRecord, error) {
	var comment models.CommentRecord
	_, err := c.doJSON(ctx, "create_comment", http.MethodPost, "/api/comments", commentRequest{
		UserID:  userID,
		PostID:  postID,
		Content: content,
	}, &comment)
	return comment, err
}

func (c *Client) GetComment(ctx context.Context, commentID int64) (models.CommentRecord, error) {
	var comment models.CommentRecord
	_, err := c.doJSON(ctx, "show_comment", http.MethodGet, fmt.Sprintf("/api/comments/%d", commentID), nil, &comment)
	return comment, err
}

func (c *Client) EditComment(ctx context.Context, commentID int64, content string) error {
	_, err := c.doJSON(ctx, "edit_comment", http.MethodPatch, fmt.Sprintf("/api/comments/%d", commentID), contentRequest{Content: content}, nil)
	return err
}

func (c *Client) DeleteComment(ctx context.Context, commentID int64) error {
	_, err := c.doJSON(ctx, "delete_comment", http.MethodDelete, fmt.Sprintf("/api/comments/%d", commentID), nil, nil)
	return err
}
