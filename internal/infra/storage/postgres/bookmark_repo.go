package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vietddude/recap/internal/core/domain"
	"github.com/vietddude/recap/internal/infra/storage"
)

// BookmarkRepo implements storage.BookmarkRepository using PostgreSQL.
type BookmarkRepo struct {
	db sqlx.ExtContext
}

// NewBookmarkRepo creates a new PostgreSQL bookmark repository.
func NewBookmarkRepo(db *DB) *BookmarkRepo {
	return &BookmarkRepo{db: db.DB}
}

type bookmarkRow struct {
	ID            string    `db:"id"`
	UserID        string    `db:"user_id"`
	URL           string    `db:"url"`
	Title         string    `db:"title"`
	Summary       string    `db:"summary"`
	SummaryMode   string    `db:"summary_mode"`
	Tags          string    `db:"tags"`
	CreatedAt     time.Time `db:"created_at"`
	AccessedCount int       `db:"accessed_count"`
}

func (r bookmarkRow) toDomain() *domain.Bookmark {
	return &domain.Bookmark{
		ID:            r.ID,
		UserID:        r.UserID,
		URL:           r.URL,
		Title:         r.Title,
		Summary:       r.Summary,
		SummaryMode:   domain.SummaryMode(r.SummaryMode),
		Tags:          r.Tags,
		CreatedAt:     r.CreatedAt,
		AccessedCount: r.AccessedCount,
	}
}

// Save stores a bookmark. Saving the same (user, url) pair again
// refreshes the record in place, keeping its ID and access counter.
func (r *BookmarkRepo) Save(ctx context.Context, bookmark *domain.Bookmark) error {
	if bookmark.ID == "" {
		bookmark.ID = uuid.NewString()
	}
	if bookmark.CreatedAt.IsZero() {
		bookmark.CreatedAt = time.Now()
	}

	const query = `
		INSERT INTO bookmarks (id, user_id, url, title, summary, summary_mode, tags, created_at, accessed_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0)
		ON CONFLICT (user_id, url) DO UPDATE SET
			title = EXCLUDED.title,
			summary = EXCLUDED.summary,
			summary_mode = EXCLUDED.summary_mode,
			tags = EXCLUDED.tags,
			created_at = EXCLUDED.created_at
		RETURNING id`

	err := sqlx.GetContext(ctx, r.db, &bookmark.ID, query,
		bookmark.ID,
		bookmark.UserID,
		bookmark.URL,
		bookmark.Title,
		bookmark.Summary,
		string(bookmark.SummaryMode),
		bookmark.Tags,
		bookmark.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save bookmark: %w", err)
	}
	return nil
}

// GetByID retrieves a bookmark by ID.
func (r *BookmarkRepo) GetByID(ctx context.Context, id string) (*domain.Bookmark, error) {
	const query = `
		SELECT id, user_id, url, title, summary, summary_mode, tags, created_at, accessed_count
		FROM bookmarks
		WHERE id = $1`

	var row bookmarkRow
	err := sqlx.GetContext(ctx, r.db, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bookmark: %w", err)
	}
	return row.toDomain(), nil
}

// ListByUser retrieves a user's bookmarks, newest first.
func (r *BookmarkRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Bookmark, error) {
	const query = `
		SELECT id, user_id, url, title, summary, summary_mode, tags, created_at, accessed_count
		FROM bookmarks
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	var rows []bookmarkRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, userID, limitOrDefault(limit)); err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}
	return toDomainList(rows), nil
}

// Search finds a user's bookmarks matching the keyword in title,
// summary or tags, newest first.
func (r *BookmarkRepo) Search(ctx context.Context, userID, keyword string, limit int) ([]*domain.Bookmark, error) {
	const query = `
		SELECT id, user_id, url, title, summary, summary_mode, tags, created_at, accessed_count
		FROM bookmarks
		WHERE user_id = $1
		  AND (title ILIKE $2 OR summary ILIKE $2 OR tags ILIKE $2)
		ORDER BY created_at DESC
		LIMIT $3`

	pattern := "%" + keyword + "%"
	var rows []bookmarkRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, userID, pattern, limitOrDefault(limit)); err != nil {
		return nil, fmt.Errorf("failed to search bookmarks: %w", err)
	}
	return toDomainList(rows), nil
}

// IncrementAccess bumps a bookmark's access counter.
func (r *BookmarkRepo) IncrementAccess(ctx context.Context, id string) error {
	const query = `UPDATE bookmarks SET accessed_count = accessed_count + 1 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to increment access count: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes one of the user's bookmarks.
func (r *BookmarkRepo) Delete(ctx context.Context, userID, id string) error {
	const query = `DELETE FROM bookmarks WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete bookmark: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// CountByUser counts a user's bookmarks.
func (r *BookmarkRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM bookmarks WHERE user_id = $1`

	var count int
	if err := sqlx.GetContext(ctx, r.db, &count, query, userID); err != nil {
		return 0, fmt.Errorf("failed to count bookmarks: %w", err)
	}
	return count, nil
}

// DeleteOlderThan removes bookmarks created before the cutoff.
func (r *BookmarkRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM bookmarks WHERE created_at < $1`

	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old bookmarks: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected, nil
}

func toDomainList(rows []bookmarkRow) []*domain.Bookmark {
	bookmarks := make([]*domain.Bookmark, len(rows))
	for i, row := range rows {
		bookmarks[i] = row.toDomain()
	}
	return bookmarks
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return 100
	}
	return limit
}
