// SPDX-License-Identifier: AGPL-3.0-only
package models

type User struct {
	ID               int64  `json:"id"`
	Username         string `json:"username"`
	Email            string `json:"email"`
	ProfileImage     string `json:"profile_image"`
	SelfIntroduction string `json:"self_introduction"`
}

// Credentials are the token headers issued on sign in and replayed on every
// authenticated request.
type Credentials struct {
	AccessToken string `json:"access_token"`
	Client      string `json:"client"`
	UID         string `json:"uid"`
}

func (c Credentials) Empty() bool {
	return c.AccessToken == "" && c.Client == "" && c.UID == ""
}
