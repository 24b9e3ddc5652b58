// SPDX-License-Identifier: AGPL-3.0-only
package fetcher

import (
	"context"
	"net/http"

	"github.com/fluffyriot/bookshare/internal/models"
)

func (c *Client) GetMessages(ctx context.Context) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	_, err := c.doJSON(ctx, "get_messages", http.MethodGet, "/api/get_messages", nil, &msgs)
	if err != nil {
		return nil, err
	}
	return msgs, nil
}
