// SPDX-License-Identifier: AGPL-3.0-only
package feed

import (
	"testing"

	"github.com/fluffyriot/bookshare/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestInverseRestoresPreImage(t *testing.T) {
	pre := models.PostRecord{ID: 1, LikedCount: 5, AlreadyLiked: false, Content: "x", CommentedCount: 2}

	cases := []Patch{
		{LikeDelta: 1, AlreadyLiked: Liked(true)},
		{LikeDelta: -1, AlreadyLiked: Liked(false)},
		{CommentDelta: 1},
		{Content: Text("edited"), PostImage: Text("p.jpg")},
	}

	for _, p := range cases {
		r := pre
		p.apply(&r)
		p.Inverse(pre).apply(&r)
		assert.Equal(t, pre, r)
	}
}

func TestInverseOfClampedPatch(t *testing.T) {
	pre := models.PostRecord{ID: 1, LikedCount: 0, AlreadyLiked: true, CommentedCount: 1}

	r := pre
	applied := Patch{LikeDelta: -1, CommentDelta: -3, AlreadyLiked: Liked(false)}.apply(&r)
	assert.Equal(t, 0, applied.LikeDelta)
	assert.Equal(t, -1, applied.CommentDelta)

	applied.Inverse(pre).apply(&r)
	assert.Equal(t, pre, r)
}

func TestApplyPatchUndo(t *testing.T) {
	s := NewStore("test", nil)
	s.Prepend(models.PostRecord{ID: 1, LikedCount: 0, AlreadyLiked: true})

	undo, ok := s.ApplyPatchUndo(1, Patch{LikeDelta: -1, AlreadyLiked: Liked(false)})
	assert.True(t, ok)
	s.ApplyPatch(1, Patch{LikeDelta: 4})
	s.ApplyPatch(1, undo)

	p, _ := s.Get(1)
	assert.Equal(t, 4, p.LikedCount)
	assert.True(t, p.AlreadyLiked)

	_, ok = s.ApplyPatchUndo(99, Patch{LikeDelta: 1})
	assert.False(t, ok)
}

func TestPatchIsZero(t *testing.T) {
	assert.True(t, Patch{}.IsZero())
	assert.False(t, Patch{LikeDelta: 1}.IsZero())
	assert.False(t, Patch{Content: Text("")}.IsZero())
}

func TestCommentList(t *testing.T) {
	l := NewCommentList(4, []models.CommentRecord{{ID: 1, Content: "a"}, {ID: 2, Content: "b"}})

	l.Prepend(models.CommentRecord{ID: 3, Content: "c"})
	assert.Equal(t, int64(3), l.Comments()[0].ID)

	assert.True(t, l.SetContent(1, "a2"))
	assert.False(t, l.SetContent(42, "nope"))
	assert.True(t, l.RemoveByID(2))
	assert.False(t, l.RemoveByID(2))

	got := l.Comments()
	assert.Len(t, got, 2)
	assert.Equal(t, "a2", got[1].Content)
	assert.Equal(t, int64(4), l.PostID())
}
