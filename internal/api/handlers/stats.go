// SPDX-License-Identifier: AGPL-3.0-only
package handlers

import (
	"net/http"

	"github.com/fluffyriot/bookshare/internal/stats"
	"github.com/gin-gonic/gin"
)

func (h *Handler) StatsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"timeline": stats.Summarize(h.App.Timeline.Posts()),
		"my_posts": stats.Summarize(h.App.MyPosts.Posts()),
	})
}

// RefreshHandler runs one refresh pass now instead of waiting for the
// scheduler.
func (h *Handler) RefreshHandler(c *gin.Context) {
	n := h.App.Worker.RefreshAll(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"updated":         n,
		"scheduler_alive": h.App.Worker.IsActive(),
	})
}
