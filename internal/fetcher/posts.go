// SPDX-License-Identifier: AGPL-3.0-only
package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/fluffyriot/bookshare/internal/models"
)

func (c *Client) FetchTimeline(ctx context.Context, authUserID int64, page int) ([]models.PostRecord, error) {
	var posts []models.PostRecord
	_, err := c.doJSON(ctx, "get_posts", http.MethodPost, "/api/get_posts", pageRequest{
		AuthUserID: authUserID,
		Page:       page,
	}, &posts)
	if err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *Client) FetchMyPosts(ctx context.Context, authUserID int64, page int) ([]models.PostRecord, error) {
	var posts []models.PostRecord
	_, err := c.doJSON(ctx, "get_my_posts", http.MethodPost, "/api/get_my_posts", pageRequest{
		AuthUserID: authUserID,
		Page:       page,
	}, &posts)
	if err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *Client) GetPostDetail(ctx context.Context, postID, authUserID int64) (models.PostDetail, error) {
	var detail models.PostDetail
	_, err := c.doJSON(ctx, "get_post", http.MethodPost, "/api/get_post", postDetailRequest{
		PostID:     postID,
		AuthUserID: authUserID,
	}, &detail)
	if err != nil {
		return models.PostDetail{}, err
	}
	if detail.Comments == nil {
		detail.Comments = []models.CommentRecord{}
	}
	return detail, nil
}

func (c *Client) GetPost(ctx context.Context, postID int64) (models.PostRecord, error) {
	var post models.PostRecord
	_, err := c.doJSON(ctx, "show_post", http.MethodGet, fmt.Sprintf("/api/posts/%d", postID), nil, &post)
	return post, err
}

func (c *Client) CreatePost(ctx context.Context, p NewPost) (models.PostRecord, error) {
	form := newMultipartForm()
	form.field("user_id", strconv.FormatInt(p.UserID, 10))
	form.field("content", p.Content)
	if p.Picture != nil {
		form.file("post_picture", p.Picture)
	} else {
		form.field("post_picture", "")
	}

	body, contentType, err := form.finish()
	if err != nil {
		return models.PostRecord{}, fmt.Errorf("create_post: %w", err)
	}

	var post models.PostRecord
	_, err = c.do(ctx, "create_post", http.MethodPost, "/api/posts", body, contentType, &post)
	return post, err
}

func (c *Client) EditPost(ctx context.Context, postID int64, content string) error {
	_, err := c.doJSON(ctx, "edit_post", http.MethodPatch, fmt.Sprintf("/api/posts/%d", postID), contentRequest{Content: content}, nil)
	return err
}

func (c *Client) DeletePost(ctx context.Context, postID int64) error {
	_, err := c.doJSON(ctx, "delete_post", http.MethodDelete, fmt.Sprintf("/api/posts/%d", postID), nil, nil)
	return err
}
