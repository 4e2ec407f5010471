package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vietddude/recap/internal/core/domain"
	"github.com/vietddude/recap/internal/infra/storage"
)

// SearchHistoryRepo implements storage.SearchHistoryRepository using
// PostgreSQL.
type SearchHistoryRepo struct {
	db sqlx.ExtContext
}

// NewSearchHistoryRepo creates a new PostgreSQL search history repository.
func NewSearchHistoryRepo(db *DB) *SearchHistoryRepo {
	return &SearchHistoryRepo{db: db.DB}
}

type searchRecordRow struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	Keyword     string    `db:"keyword"`
	ResultCount int       `db:"result_count"`
	CreatedAt   time.Time `db:"created_at"`
}

// Record stores one search.
func (r *SearchHistoryRepo) Record(ctx context.Context, record *domain.SearchRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	const query = `
		INSERT INTO search_history (id, user_id, keyword, result_count, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.UserID,
		record.Keyword,
		record.ResultCount,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record search: %w", err)
	}
	return nil
}

// RecentByUser retrieves a user's recent searches, newest first.
func (r *SearchHistoryRepo) RecentByUser(ctx context.Context, userID string, limit int) ([]*domain.SearchRecord, error) {
	const query = `
		SELECT id, user_id, keyword, result_count, created_at
		FROM search_history
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	var rows []searchRecordRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, userID, limitOrDefault(limit)); err != nil {
		return nil, fmt.Errorf("failed to list search history: %w", err)
	}

	records := make([]*domain.SearchRecord, len(rows))
	for i, row := range rows {
		records[i] = &domain.SearchRecord{
			ID:          row.ID,
			UserID:      row.UserID,
			Keyword:     row.Keyword,
			ResultCount: row.ResultCount,
			CreatedAt:   row.CreatedAt,
		}
	}
	return records, nil
}

// TopKeywords ranks a user's search keywords by frequency.
func (r *SearchHistoryRepo) TopKeywords(ctx context.Context, userID string, limit int) ([]storage.KeywordCount, error) {
	const query = `
		SELECT keyword, COUNT(*) AS count
		FROM search_history
		WHERE user_id = $1
		GROUP BY keyword
		ORDER BY count DESC, keyword ASC
		LIMIT $2`

	var rows []struct {
		Keyword string `db:"keyword"`
		Count   int    `db:"count"`
	}
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, userID, limitOrDefault(limit)); err != nil {
		return nil, fmt.Errorf("failed to rank keywords: %w", err)
	}

	counts := make([]storage.KeywordCount, len(rows))
	for i, row := range rows {
		counts[i] = storage.KeywordCount{Keyword: row.Keyword, Count: row.Count}
	}
	return counts, nil
}

// DeleteOlderThan removes searches recorded before the cutoff.
func (r *SearchHistoryRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM search_history WHERE created_at < $1`

	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune search history: %w", err)
	}
	return result.RowsAffected()
}
