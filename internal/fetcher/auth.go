// SPDX-License-Identifier: AGPL-3.0-only
package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/fluffyriot/bookshare/internal/models"
)

// SignIn exchanges email and password for token headers. A 401 is reported
// as ErrInvalidCredentials.
func (c *Client) SignIn(ctx context.Context, email, password string) (models.Credentials, error) {
	h, err := c.doJSON(ctx, "sign_in", http.MethodPost, "/api/auth/sign_in", signInRequest{
		Email:    email,
		Password: password,
	}, nil)
	if err != nil {
		if IsUnauthorized(err) {
			return models.Credentials{}, ErrInvalidCredentials
		}
		return models.Credentials{}, err
	}

	creds := models.Credentials{
		AccessToken: h.Get("access-token"),
		Client:      h.Get("client"),
		UID:         h.Get("uid"),
	}
	if creds.AccessToken == "" || creds.UID == "" {
		return models.Credentials{}, ErrMissingCredentials
	}
	return creds, nil
}

func (c *Client) Register(ctx context.Context, username, email, password string) error {
	_, err := c.doJSON(ctx, "register", http.MethodPost, "/api/auth", registerRequest{
		Username: username,
		Email:    email,
		Password: password,
	}, nil)
	if IsUnprocessable(err) {
		return ErrEmailTaken
	}
	return err
}

func (c *Client) GetUser(ctx context.Context, uid string) (models.User, error) {
	var u models.User
	_, err := c.doJSON(ctx, "get_user", http.MethodPost, "/api/get_user", getUserRequest{UID: uid}, &u)
	return u, err
}

func (c *Client) UpdateUser(ctx context.Context, p ProfileUpdate) (models.User, error) {
	form := newMultipartForm()
	form.field("user_id", strconv.FormatInt(p.UserID, 10))
	form.field("username", p.Username)
	form.field("self_introduction", p.SelfIntroduction)
	if p.ProfileImage != nil {
		form.file("profile_image", p.ProfileImage)
	} else {
		form.field("profile_image", "")
	}

	body, contentType, err := form.finish()
	if err != nil {
		return models.User{}, fmt.Errorf("update_user: %w", err)
	}

	var u models.User
	_, err = c.do(ctx, "update_user", http.MethodPost, "/api/update_user", body, contentType, &u)
	return u, err
}
