// SPDX-License-Identifier: AGPL-3.0-only
package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/fluffyriot/bookshare/internal/app"
	"github.com/fluffyriot/bookshare/internal/feed"
	"github.com/fluffyriot/bookshare/internal/fetcher"
	"github.com/fluffyriot/bookshare/internal/helpers"
	"github.com/fluffyriot/bookshare/internal/reconciler"
	"github.com/fluffyriot/bookshare/internal/relay"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	App *app.Container
}

func NewHandler(a *app.Container) *Handler {
	return &Handler{App: a}
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// fail maps an error to a JSON response.
func (h *Handler) fail(c *gin.Context, op string, err error) {
	var ve *helpers.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    ve.Error(),
			"required": ve.Required,
			"invalid":  ve.Invalid,
			"mismatch": ve.Mismatch,
		})
		return
	case errors.Is(err, fetcher.ErrInvalidCredentials),
		errors.Is(err, reconciler.ErrNotSignedIn),
		fetcher.IsUnauthorized(err):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	case errors.Is(err, fetcher.ErrEmailTaken):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	case errors.Is(err, reconciler.ErrToggleInFlight),
		errors.Is(err, feed.ErrLoadInProgress),
		errors.Is(err, app.ErrChatClosed),
		errors.Is(err, relay.ErrNotSubscribed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, reconciler.ErrUnknownPost),
		fetcher.HasStatus(err, http.StatusNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case errors.Is(err, fetcher.ErrUnsupportedImage):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
		return
	}

	log.Printf("Handler %s: %v", op, err)
	c.JSON(http.StatusBadGateway, gin.H{"error": "Backend request failed: " + err.Error()})
}
