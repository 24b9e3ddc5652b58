// SPDX-License-Identifier: AGPL-3.0-only
package models

type ChatMessage struct {
	ID      int64  `json:"id"`
	UserID  int64  `json:"user_id"`
	RoomID  int64  `json:"room_id"`
	Content string `json:"content"`
}

// ChatEnvelope is what RoomChannel broadcasts for every spoken message.
type ChatEnvelope struct {
	Sender string      `json:"sender"`
	Body   ChatMessage `json:"body"`
}
