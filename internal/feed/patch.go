// SPDX-License-Identifier: AGPL-3.0-only
package feed

import "github.com/fluffyriot/bookshare/internal/models"

// Patch is a partial update of a post. Counter deltas are added to the
// current value; every non-nil pointer field replaces the current value.
type Patch struct {
	LikeDelta    int
	CommentDelta int
	AlreadyLiked *bool
	Content      *string
	PostImage    *string
}

func Liked(v bool) *bool { return &v }

func Text(v string) *string { return &v }

func (p Patch) IsZero() bool {
	return p.LikeDelta == 0 && p.CommentDelta == 0 &&
		p.AlreadyLiked == nil && p.Content == nil && p.PostImage == nil
}

// apply patches r and returns the patch as it took effect: counter deltas
// are what actually changed after clamping.
func (p Patch) apply(r *models.PostRecord) Patch {
	applied := p
	likes, comments := r.LikedCount, r.CommentedCount
	r.LikedCount = clampAdd(r.LikedCount, p.LikeDelta)
	r.CommentedCount = clampAdd(r.CommentedCount, p.CommentDelta)
	applied.LikeDelta = r.LikedCount - likes
	applied.CommentDelta = r.CommentedCount - comments

	if p.AlreadyLiked != nil {
		r.AlreadyLiked = *p.AlreadyLiked
	}
	if p.Content != nil {
		r.Content = *p.Content
	}
	if p.PostImage != nil {
		r.PostImage = *p.PostImage
	}
	return applied
}

// Inverse returns the patch that undoes p on a record whose state before p
// was pre. Counters are negated; replaced fields go back to pre. p must be
// the patch as applied (see Store.ApplyPatchUndo) when a counter may have
// been clamped.
func (p Patch) Inverse(pre models.PostRecord) Patch {
	inv := Patch{
		LikeDelta:    -p.LikeDelta,
		CommentDelta: -p.CommentDelta,
	}
	if p.AlreadyLiked != nil {
		inv.AlreadyLiked = Liked(pre.AlreadyLiked)
	}
	if p.Content != nil {
		inv.Content = Text(pre.Content)
	}
	if p.PostImage != nil {
		inv.PostImage = Text(pre.PostImage)
	}
	return inv
}

func clampAdd(v, delta int) int {
	v += delta
	if v < 0 {
		return 0
	}
	return v
}
