// SPDX-License-Identifier: AGPL-3.0-only
package handlers

import (
	"net/http"

	"github.com/fluffyriot/bookshare/internal/fetcher"
	"github.com/fluffyriot/bookshare/internal/helpers"
	"github.com/fluffyriot/bookshare/internal/models"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type userView struct {
	models.User
	ProfileImageURL string `json:"profile_image_url,omitempty"`
}

func (h *Handler) viewUser(u models.User) userView {
	url, _ := helpers.ConvImageToURL(h.App.Config.APIURL, "profile", u.ProfileImage)
	return userView{User: u, ProfileImageURL: url}
}

func (h *Handler) CurrentUserHandler(c *gin.Context) {
	st := h.App.Session.Snapshot()
	if st.User == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not logged in"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": h.viewUser(*st.User)})
}

// UpdateProfileHandler accepts a multipart form with username,
// self_introduction and an optional profile_image file.
func (h *Handler) UpdateProfileHandler(c *gin.Context) {
	username := c.PostForm("username")
	selfIntro := c.PostForm("self_introduction")

	image, ok := h.formImage(c, "profile_image")
	if !ok {
		return
	}

	user, err := h.App.UpdateProfile(c.Request.Context(), username, selfIntro, image)
	if err != nil {
		h.fail(c, "update profile", err)
		return
	}

	session := sessions.Default(c)
	session.Set("username", user.Username)
	session.Save()

	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully", "user": h.viewUser(user)})
}

// formImage reads an optional uploaded image and prepares it for the
// backend. It writes the error response itself and reports false on failure.
func (h *Handler) formImage(c *gin.Context, field string) (*fetcher.Upload, bool) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, true
	}
	if fh.Size > fetcher.MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File is too large"})
		return nil, false
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read upload"})
		return nil, false
	}
	defer f.Close()

	u, err := fetcher.PrepareImage(fh.Filename, f)
	if err != nil {
		h.fail(c, "prepare image", err)
		return nil, false
	}
	return u, true
}
