// SPDX-License-Identifier: AGPL-3.0-only
package fetcher

type pageRequest struct {
	AuthUserID int64 `json:"auth_user_id"`
	Page       int   `json:"page"`
}

type postDetailRequest struct {
	PostID     int64 `json:"post_id"`
	AuthUserID int64 `json:"auth_user_id"`
}

type contentRequest struct {
	Content string `json:"content"`
}

type likeRequest struct {
	UserID int64 `json:"user_id"`
	PostID int64 `json:"post_id"`
}

type commentRequest struct {
	UserID  int64  `json:"user_id"`
	PostID  int64  `json:"post_id"`
	Content string `json:"content"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type getUserRequest struct {
	UID string `json:"uid"`
}

// NewPost is the form sent to create a post. Picture is optional.
type NewPost struct {
	UserID  int64
	Content string
	Picture *Upload
}

// ProfileUpdate is the form sent to update the signed-in user's profile.
// ProfileImage is optional.
type ProfileUpdate struct {
	UserID           int64
	Username         string
	SelfIntroduction string
	ProfileImage     *Upload
}
