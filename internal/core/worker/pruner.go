// Package worker holds background maintenance loops.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/recap/internal/infra/storage"
)

// Pruner deletes bookmarks and search history older than the retention
// period.
type Pruner struct {
	retention time.Duration
	bookmarks storage.BookmarkRepository
	history   storage.SearchHistoryRepository
}

// NewPruner creates a new Pruner worker. A zero or negative retention
// disables it.
func NewPruner(retention time.Duration, bookmarks storage.BookmarkRepository, history storage.SearchHistoryRepository) *Pruner {
	return &Pruner{
		retention: retention,
		bookmarks: bookmarks,
		history:   history,
	}
}

// Start runs the pruner loop.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		return // Retention disabled
	}

	// Check at 10% of the retention period, clamped to [1m, 1h]
	interval := min(p.retention/10, 1*time.Hour)
	interval = max(interval, 1*time.Minute)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Initial prune
	p.prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) {
	cutoff := time.Now().Add(-p.retention)

	removed, err := p.bookmarks.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		slog.Error("failed to prune bookmarks", "error", err)
	} else if removed > 0 {
		slog.Info("pruned old bookmarks", "removed", removed, "cutoff", cutoff)
	}

	if p.history == nil {
		return
	}
	removed, err = p.history.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		slog.Error("failed to prune search history", "error", err)
		return
	}
	if removed > 0 {
		slog.Info("pruned old search history", "removed", removed, "cutoff", cutoff)
	}
}
