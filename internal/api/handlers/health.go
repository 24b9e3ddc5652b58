// SPDX-License-Identifier: AGPL-3.0-only
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) HealthCheckHandler(c *gin.Context) {
	chat := "closed"
	if r, err := h.App.Chat(); err == nil {
		chat = r.State().String()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"signed_in": h.App.Session.SignedIn(),
		"chat":      chat,
		"refresher": h.App.Worker.IsActive(),
	})
}
