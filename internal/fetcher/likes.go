// SPDX-License-Identifier: AGPL-3.0-only
package fetcher

import (
	"context"
	"fmt"
	"net/http"
)

func (c *Client) Like(ctx context.Context, userID, postID int64) error {
	_, err := c.doJSON(ctx, "like", http.MethodPost, "/api/likes", likeRequest{
		UserID: userID,
		PostID: postID,
	}, nil)
	return err
}

func (c *Client) Unlike(ctx context.Context, userID, postID int64) error {
	_, err := c.doJSON(ctx, "unlike", http.MethodDelete, fmt.Sprintf("/api/likes/%d/%d", userID, postID), nil, nil)
	return err
}
