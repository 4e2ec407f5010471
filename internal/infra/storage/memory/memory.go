// Package memory provides in-memory repositories, used when no
// database is configured and by handler tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/recap/internal/core/domain"
	"github.com/vietddude/recap/internal/infra/storage"
)

type MemoryStorage struct {
	bookmarks map[string]*domain.Bookmark
	history   []*domain.SearchRecord
	mu        sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		bookmarks: make(map[string]*domain.Bookmark),
	}
}

// -----------------------------------------------------------------------------
// Bookmark Repository
// -----------------------------------------------------------------------------

type BookmarkRepo struct {
	store *MemoryStorage
}

func NewBookmarkRepo(store *MemoryStorage) *BookmarkRepo {
	return &BookmarkRepo{store: store}
}

func (r *BookmarkRepo) Save(ctx context.Context, bookmark *domain.Bookmark) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if bookmark.CreatedAt.IsZero() {
		bookmark.CreatedAt = time.Now()
	}

	// Refresh an existing bookmark for the same (user, url) pair
	// instead of duplicating it.
	for _, existing := range r.store.bookmarks {
		if existing.UserID == bookmark.UserID && existing.URL == bookmark.URL {
			existing.Title = bookmark.Title
			existing.Summary = bookmark.Summary
			existing.SummaryMode = bookmark.SummaryMode
			existing.Tags = bookmark.Tags
			existing.CreatedAt = bookmark.CreatedAt
			bookmark.ID = existing.ID
			bookmark.AccessedCount = existing.AccessedCount
			return nil
		}
	}

	if bookmark.ID == "" {
		bookmark.ID = uuid.NewString()
	}
	saved := *bookmark
	r.store.bookmarks[saved.ID] = &saved
	return nil
}

func (r *BookmarkRepo) GetByID(ctx context.Context, id string) (*domain.Bookmark, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	bookmark, ok := r.store.bookmarks[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *bookmark
	return &copied, nil
}

func (r *BookmarkRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Bookmark, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var result []*domain.Bookmark
	for _, bookmark := range r.store.bookmarks {
		if bookmark.UserID == userID {
			copied := *bookmark
			result = append(result, &copied)
		}
	}
	sortNewestFirst(result)
	return clip(result, limit), nil
}

func (r *BookmarkRepo) Search(ctx context.Context, userID, keyword string, limit int) ([]*domain.Bookmark, error) {
	needle := strings.ToLower(keyword)

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var result []*domain.Bookmark
	for _, bookmark := range r.store.bookmarks {
		if bookmark.UserID != userID {
			continue
		}
		haystack := strings.ToLower(bookmark.Title + " " + bookmark.Summary + " " + bookmark.Tags)
		if strings.Contains(haystack, needle) {
			copied := *bookmark
			result = append(result, &copied)
		}
	}
	sortNewestFirst(result)
	return clip(result, limit), nil
}

func (r *BookmarkRepo) IncrementAccess(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	bookmark, ok := r.store.bookmarks[id]
	if !ok {
		return storage.ErrNotFound
	}
	bookmark.AccessedCount++
	return nil
}

func (r *BookmarkRepo) Delete(ctx context.Context, userID, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	bookmark, ok := r.store.bookmarks[id]
	if !ok || bookmark.UserID != userID {
		return storage.ErrNotFound
	}
	delete(r.store.bookmarks, id)
	return nil
}

func (r *BookmarkRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	count := 0
	for _, bookmark := range r.store.bookmarks {
		if bookmark.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (r *BookmarkRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var removed int64
	for id, bookmark := range r.store.bookmarks {
		if bookmark.CreatedAt.Before(cutoff) {
			delete(r.store.bookmarks, id)
			removed++
		}
	}
	return removed, nil
}

func sortNewestFirst(bookmarks []*domain.Bookmark) {
	sort.Slice(bookmarks, func(i, j int) bool {
		return bookmarks[i].CreatedAt.After(bookmarks[j].CreatedAt)
	})
}

func clip[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

// -----------------------------------------------------------------------------
// Search History Repository
// -----------------------------------------------------------------------------

type SearchHistoryRepo struct {
	store *MemoryStorage
}

func NewSearchHistoryRepo(store *MemoryStorage) *SearchHistoryRepo {
	return &SearchHistoryRepo{store: store}
}

func (r *SearchHistoryRepo) Record(ctx context.Context, record *domain.SearchRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	saved := *record
	r.store.history = append(r.store.history, &saved)
	return nil
}

func (r *SearchHistoryRepo) RecentByUser(ctx context.Context, userID string, limit int) ([]*domain.SearchRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var result []*domain.SearchRecord
	for _, record := range r.store.history {
		if record.UserID == userID {
			copied := *record
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return clip(result, limit), nil
}

func (r *SearchHistoryRepo) TopKeywords(ctx context.Context, userID string, limit int) ([]storage.KeywordCount, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	counts := make(map[string]int)
	for _, record := range r.store.history {
		if record.UserID == userID {
			counts[record.Keyword]++
		}
	}

	result := make([]storage.KeywordCount, 0, len(counts))
	for keyword, count := range counts {
		result = append(result, storage.KeywordCount{Keyword: keyword, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Keyword < result[j].Keyword
	})
	return clip(result, limit), nil
}

func (r *SearchHistoryRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var (
		kept    []*domain.SearchRecord
		removed int64
	)
	for _, record := range r.store.history {
		if record.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, record)
	}
	r.store.history = kept
	return removed, nil
}
