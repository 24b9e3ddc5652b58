// SPDX-License-Identifier: AGPL-3.0-only
package models

// PageSize is the number of posts the backend returns for a full page.
const PageSize = 20

type PostRecord struct {
	ID             int64  `json:"id"`
	UserID         int64  `json:"user_id"`
	Username       string `json:"username"`
	ProfileImage   string `json:"profile_image"`
	Content        string `json:"content"`
	PostImage      string `json:"post_image,omitempty"`
	LikedCount     int    `json:"liked_count"`
	AlreadyLiked   bool   `json:"already_liked"`
	CommentedCount int    `json:"commented_count"`
}

type CommentRecord struct {
	ID           int64  `json:"id"`
	UserID       int64  `json:"user_id"`
	PostID       int64  `json:"post_id"`
	Username     string `json:"username"`
	ProfileImage string `json:"profile_image"`
	Content      string `json:"content"`
}

// FeedPage is a read-only snapshot of a feed store.
type FeedPage struct {
	Posts   []PostRecord `json:"posts"`
	Cursor  int          `json:"cursor"`
	HasMore bool         `json:"has_more"`
}

type PostDetail struct {
	Post     PostRecord      `json:"post"`
	Comments []CommentRecord `json:"comments"`
}
