// SPDX-License-Identifier: AGPL-3.0-only
package feed

import (
	"sync"

	"github.com/fluffyriot/bookshare/internal/models"
)

// CommentList holds the comments shown for a single post, newest first.
type CommentList struct {
	postID int64

	mu       sync.Mutex
	comments []models.CommentRecord
}

func NewCommentList(postID int64, comments []models.CommentRecord) *CommentList {
	return &CommentList{
		postID:   postID,
		comments: append([]models.CommentRecord(nil), comments...),
	}
}

func (l *CommentList) PostID() int64 { return l.postID }

func (l *CommentList) Prepend(c models.CommentRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.comments = append([]models.CommentRecord{c}, l.comments...)
}

func (l *CommentList) SetContent(id int64, content string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.comments {
		if l.comments[i].ID == id {
			l.comments[i].Content = content
			return true
		}
	}
	return false
}

func (l *CommentList) RemoveByID(id int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.comments {
		if l.comments[i].ID == id {
			l.comments = append(l.comments[:i], l.comments[i+1:]...)
			return true
		}
	}
	return false
}

func (l *CommentList) Comments() []models.CommentRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.CommentRecord{}, l.comments...)
}

func (l *CommentList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.comments)
}
