package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/recap/internal/metrics"
)

// Start runs the background sweeper loop until ctx is cancelled. A
// negative cleanup interval disables sweeping; expiry then happens
// lazily on access only.
func (m *Manager) Start(ctx context.Context) {
	if m.cfg.CleanupInterval <= 0 {
		return
	}

	ticker := time.NewTicker(m.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if swept := m.Sweep(); swept > 0 {
				slog.Info("swept expired sessions", "count", swept)
			}
		}
	}
}

// Sweep drops every expired session and reports how many were removed.
func (m *Manager) Sweep() int {
	now := m.now()

	m.mu.Lock()
	var expired []string
	for userID, sess := range m.sessions {
		sess.mu.Lock()
		dead := now.Sub(sess.lastActiveAt) >= m.cfg.TTL
		sess.mu.Unlock()
		if dead {
			expired = append(expired, userID)
		}
	}
	for _, userID := range expired {
		delete(m.sessions, userID)
	}
	m.sweepRuns++
	m.sessionsSwept += len(expired)
	size := len(m.sessions)
	m.mu.Unlock()

	metrics.SessionsSwept.Add(float64(len(expired)))
	metrics.SessionsActive.Set(float64(size))

	if m.OnExpired != nil {
		for _, userID := range expired {
			m.OnExpired(userID)
		}
	}
	return len(expired)
}
