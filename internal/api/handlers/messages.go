// SPDX-License-Identifier: AGPL-3.0-only
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type speakRequest struct {
	Body string `json:"body" form:"body"`
}

// MessagesHandler opens the room subscription on first use and returns the
// chat log.
func (h *Handler) MessagesHandler(c *gin.Context) {
	r, err := h.App.OpenChat(c.Request.Context())
	if err != nil {
		h.fail(c, "open chat", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"state":    r.State().String(),
		"messages": h.App.Messages.Messages(),
	})
}

// SendMessageHandler speaks on the room. Delivery shows up in the log when
// the broadcast comes back; nothing is appended locally.
func (h *Handler) SendMessageHandler(c *gin.Context) {
	var req speakRequest
	if err := c.ShouldBind(&req); err != nil || req.Body == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message body is required"})
		return
	}

	r, err := h.App.Chat()
	if err != nil {
		h.fail(c, "send message", err)
		return
	}
	if err := r.Send(req.Body); err != nil {
		h.fail(c, "send message", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "sent"})
}

func (h *Handler) CloseChatHandler(c *gin.Context) {
	h.App.CloseChat()
	c.JSON(http.StatusOK, gin.H{"status": "closed"})
}
