package storage

import (
	"context"
	"errors"
	"time"

	"github.com/vietddude/recap/internal/core/domain"
)

var (
	// ErrNotFound is returned when a record doesn't exist
	ErrNotFound = errors.New("record not found")
)

// BookmarkRepository handles bookmark storage operations
type BookmarkRepository interface {
	// Save stores a bookmark; saving the same (user, url) pair again
	// refreshes the existing record
	Save(ctx context.Context, bookmark *domain.Bookmark) error

	// GetByID retrieves a bookmark by ID
	GetByID(ctx context.Context, id string) (*domain.Bookmark, error)

	// ListByUser retrieves a user's bookmarks, newest first
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Bookmark, error)

	// Search finds a user's bookmarks matching a keyword in title,
	// summary or tags, newest first
	Search(ctx context.Context, userID, keyword string, limit int) ([]*domain.Bookmark, error)

	// IncrementAccess bumps a bookmark's access counter
	IncrementAccess(ctx context.Context, id string) error

	// Delete removes one of the user's bookmarks
	Delete(ctx context.Context, userID, id string) error

	// CountByUser counts a user's bookmarks
	CountByUser(ctx context.Context, userID string) (int, error)

	// DeleteOlderThan removes bookmarks created before the cutoff
	// (for retention pruning)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// KeywordCount is one entry of a keyword frequency ranking.
type KeywordCount struct {
	Keyword string
	Count   int
}

// SearchHistoryRepository handles search history storage operations
type SearchHistoryRepository interface {
	// Record stores one search
	Record(ctx context.Context, record *domain.SearchRecord) error

	// RecentByUser retrieves a user's recent searches, newest first
	RecentByUser(ctx context.Context, userID string, limit int) ([]*domain.SearchRecord, error)

	// TopKeywords ranks a user's search keywords by frequency
	TopKeywords(ctx context.Context, userID string, limit int) ([]KeywordCount, error)

	// DeleteOlderThan removes searches recorded before the cutoff
	// (for retention pruning)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
