// SPDX-License-Identifier: AGPL-3.0-only
package stats

import (
	"testing"

	"github.com/fluffyriot/bookshare/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	s := Summarize([]models.PostRecord{
		{ID: 1, UserID: 7, LikedCount: 3, CommentedCount: 1, AlreadyLiked: true},
		{ID: 2, UserID: 7, LikedCount: 0, CommentedCount: 2},
		{ID: 3, UserID: 8, LikedCount: 3},
	})

	assert.Equal(t, 3, s.Posts)
	assert.Equal(t, 2, s.Authors)
	assert.EqualValues(t, 6, s.TotalLikes)
	assert.EqualValues(t, 3, s.TotalComments)
	assert.Equal(t, 1, s.LikedByViewer)
	assert.InDelta(t, 2.0, s.AverageLikes, 1e-9)
	assert.InDelta(t, 1.0, s.AverageComment, 1e-9)
}

func TestSummarizeEmpty(t *testing.T) {
	assert.Equal(t, FeedStats{}, Summarize(nil))
}
