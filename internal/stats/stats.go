// SPDX-License-Identifier: AGPL-3.0-only
package stats

import (
	"github.com/fluffyriot/bookshare/internal/models"
)

type FeedStats struct {
	Posts          int     `json:"posts"`
	TotalLikes     int64   `json:"total_likes"`
	TotalComments  int64   `json:"total_comments"`
	LikedByViewer  int     `json:"liked_by_viewer"`
	AverageLikes   float64 `json:"average_likes"`
	AverageComment float64 `json:"average_comments"`
	Authors        int     `json:"authors"`
}

func Summarize(posts []models.PostRecord) FeedStats {
	var s FeedStats
	authors := make(map[int64]struct{})

	for _, p := range posts {
		s.Posts++
		s.TotalLikes += int64(p.LikedCount)
		s.TotalComments += int64(p.CommentedCount)
		if p.AlreadyLiked {
			s.LikedByViewer++
		}
		authors[p.UserID] = struct{}{}
	}
	s.Authors = len(authors)

	if s.Posts > 0 {
		s.AverageLikes = float64(s.TotalLikes) / float64(s.Posts)
		s.AverageComment = float64(s.TotalComments) / float64(s.Posts)
	}

	return s
}
