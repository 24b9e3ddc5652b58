// SPDX-License-Identifier: AGPL-3.0-only
package feed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/fluffyriot/bookshare/internal/models"
	"github.com/fluffyriot/bookshare/internal/stats"
)

var ErrLoadInProgress = errors.New("feed: a page load is already in progress")

// PageFetcher returns one backend page of posts. Backend pages are 0-based.
type PageFetcher interface {
	FetchPage(ctx context.Context, page int) ([]models.PostRecord, error)
}

type PageFetcherFunc func(ctx context.Context, page int) ([]models.PostRecord, error)

func (f PageFetcherFunc) FetchPage(ctx context.Context, page int) ([]models.PostRecord, error) {
	return f(ctx, page)
}

// Store owns an ordered sequence of posts and is its only writer.
type Store struct {
	name    string
	fetcher PageFetcher

	mu      sync.Mutex
	posts   []models.PostRecord
	cursor  int
	hasMore bool
	loading bool
}

func NewStore(name string, fetcher PageFetcher) *Store {
	return &Store{
		name:    name,
		fetcher: fetcher,
		hasMore: true,
	}
}

// BackendPage maps a caller-facing cursor to the backend page it loads.
// The caller counts "page 2 onward" from 1 while the backend counts from 0,
// so cursors 0 and 1 both load page 0.
func BackendPage(cursor int) int {
	if cursor > 0 {
		return cursor - 1
	}
	return 0
}

func (s *Store) Load(ctx context.Context, cursor int) error {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return ErrLoadInProgress
	}
	s.loading = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	page := BackendPage(cursor)
	records, err := s.fetcher.FetchPage(ctx, page)
	if err != nil {
		log.Printf("Feed %s: failed to load page %d: %v", s.name, page, err)
		return fmt.Errorf("load %s page %d: %w", s.name, page, err)
	}
	stats.FeedPages.Inc()

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(records) < models.PageSize {
		s.hasMore = false
	}

	if len(s.posts) == 0 {
		s.posts = append([]models.PostRecord(nil), records...)
	} else {
		seen := make(map[int64]struct{}, len(s.posts))
		for _, p := range s.posts {
			seen[p.ID] = struct{}{}
		}
		for _, r := range records {
			if _, ok := seen[r.ID]; ok {
				continue
			}
			seen[r.ID] = struct{}{}
			s.posts = append(s.posts, r)
		}
	}
	s.cursor++

	return nil
}

// LoadMore loads the page after the last one fetched. It does nothing once
// the backend has returned a short page.
func (s *Store) LoadMore(ctx context.Context) error {
	s.mu.Lock()
	if !s.hasMore {
		s.mu.Unlock()
		return nil
	}
	next := 0
	if s.cursor > 0 {
		next = s.cursor + 1
	}
	s.mu.Unlock()

	return s.Load(ctx, next)
}

func (s *Store) ApplyPatch(id int64, p Patch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	p.apply(&s.posts[i])
	return true
}

// ApplyPatchUndo patches the record with id and returns the patch that
// reverts exactly what changed, clamped counters included.
func (s *Store) ApplyPatchUndo(id int64, p Patch) (Patch, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return Patch{}, false
	}
	pre := s.posts[i]
	return p.apply(&s.posts[i]).Inverse(pre), true
}

// ApplyPatchAt patches by position. Out of range indices are ignored.
func (s *Store) ApplyPatchAt(index int, p Patch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.posts) {
		return false
	}
	p.apply(&s.posts[index])
	return true
}

func (s *Store) Remove(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.posts) {
		return false
	}
	s.posts = append(s.posts[:index], s.posts[index+1:]...)
	return true
}

func (s *Store) RemoveByID(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.posts = append(s.posts[:i], s.posts[i+1:]...)
	return true
}

func (s *Store) Prepend(r models.PostRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.posts = append([]models.PostRecord{r}, s.posts...)
}

// Merge overwrites posts already in the store with the server's copy,
// except those for which skip reports true. Unknown posts are ignored.
// It returns the number of posts updated.
func (s *Store) Merge(records []models.PostRecord, skip func(id int64) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, r := range records {
		if skip != nil && skip(r.ID) {
			continue
		}
		i := s.indexOf(r.ID)
		if i < 0 {
			continue
		}
		if s.posts[i] != r {
			s.posts[i] = r
			n++
		}
	}
	return n
}

// Refresh refetches the first page and merges it with Merge semantics. It
// shares the load guard so it never races a page load.
func (s *Store) Refresh(ctx context.Context, skip func(id int64) bool) (int, error) {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return 0, ErrLoadInProgress
	}
	s.loading = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	records, err := s.fetcher.FetchPage(ctx, 0)
	if err != nil {
		return 0, fmt.Errorf("refresh %s: %w", s.name, err)
	}
	return s.Merge(records, skip), nil
}

func (s *Store) Name() string {
	return s.name
}

func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.posts = nil
	s.cursor = 0
	s.hasMore = true
}

func (s *Store) Get(id int64) (models.PostRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return models.PostRecord{}, false
	}
	return s.posts[i], true
}

func (s *Store) At(index int) (models.PostRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.posts) {
		return models.PostRecord{}, false
	}
	return s.posts[index], true
}

func (s *Store) Posts() []models.PostRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]models.PostRecord(nil), s.posts...)
}

func (s *Store) Page() models.FeedPage {
	s.mu.Lock()
	defer s.mu.Unlock()

	return models.FeedPage{
		Posts:   append([]models.PostRecord{}, s.posts...),
		Cursor:  s.cursor,
		HasMore: s.hasMore,
	}
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.posts)
}

func (s *Store) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

func (s *Store) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

func (s *Store) indexOf(id int64) int {
	for i := range s.posts {
		if s.posts[i].ID == id {
			return i
		}
	}
	return -1
}
