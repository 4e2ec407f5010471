// Package session owns per-user conversational state: lazy creation,
// TTL expiry, bounded history, explicit clear. Sessions live in memory
// only; each process instance owns its own map.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/recap/internal/core/domain"
	"github.com/vietddude/recap/internal/infra/backend"
	"github.com/vietddude/recap/internal/metrics"
)

// Config controls session lifetime and history bounds.
type Config struct {
	TTL             time.Duration
	MaxHistory      int
	CleanupInterval time.Duration
}

func (c *Config) defaults() {
	if c.TTL == 0 {
		c.TTL = 30 * time.Minute
	}
	if c.MaxHistory == 0 {
		c.MaxHistory = 20
	}
	if c.CleanupInterval == 0 {
		c.CleanupInterval = 5 * time.Minute
	}
}

// session is one user's conversational state. Its mutex serializes
// every exchange and history mutation for that user; different users
// never share a session.
type session struct {
	mu           sync.Mutex
	handle       backend.ChatHandle
	history      []domain.Message
	createdAt    time.Time
	lastActiveAt time.Time
}

// touch refreshes lastActiveAt and reports whether the session is
// still live.
func (s *session) touch(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.Sub(s.lastActiveAt) >= ttl {
		return false
	}
	s.lastActiveAt = now
	return true
}

// appendLocked appends one history entry, evicting the oldest beyond
// maxHistory. Caller must hold s.mu.
func (s *session) appendLocked(now time.Time, role domain.Role, content string, maxHistory int) {
	s.history = append(s.history, domain.Message{
		Role:      role,
		Content:   content,
		Timestamp: now,
	})
	if len(s.history) > maxHistory {
		s.history = s.history[len(s.history)-maxHistory:]
	}
	s.lastActiveAt = now
}

// Manager is the registry of live sessions. The registry mutex guards
// only the map; per-user state is serialized by each session's own
// lock, so users never contend with each other.
type Manager struct {
	cfg     Config
	backend backend.Conversational
	now     func() time.Time

	// OnCreated and OnExpired, when set before first use, are invoked
	// outside all locks after a session is created or discarded.
	OnCreated func(userID string)
	OnExpired func(userID string)

	mu            sync.RWMutex
	sessions      map[string]*session
	sweepRuns     int
	sessionsSwept int
}

// NewManager creates a session manager backed by conv for fresh chat
// handles.
func NewManager(cfg Config, conv backend.Conversational) *Manager {
	cfg.defaults()
	return &Manager{
		cfg:      cfg,
		backend:  conv,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// GetOrCreate returns the user's live chat handle and a snapshot of
// their history, creating a fresh session when none exists or the
// previous one expired.
func (m *Manager) GetOrCreate(ctx context.Context, userID string) (backend.ChatHandle, []domain.Message, error) {
	sess, _, err := m.obtain(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	sess.mu.Lock()
	handle := sess.handle
	history := append([]domain.Message(nil), sess.history...)
	sess.mu.Unlock()
	return handle, history, nil
}

// Chat runs one conversational exchange, serialized against any other
// in-flight exchange for the same user. Both sides of the exchange are
// recorded in the session history.
func (m *Manager) Chat(ctx context.Context, userID, text string) (*domain.Answer, error) {
	sess, _, err := m.obtain(ctx, userID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	answer, err := sess.handle.Send(ctx, text)
	if err != nil {
		return nil, err
	}

	now := m.now()
	sess.appendLocked(now, domain.RoleUser, text, m.cfg.MaxHistory)
	sess.appendLocked(now, domain.RoleAssistant, answer.Text, m.cfg.MaxHistory)
	return answer, nil
}

// Record appends one entry to the user's history. Absent sessions are
// ignored; the entry belongs to a conversation that no longer exists.
func (m *Manager) Record(userID string, role domain.Role, content string) {
	m.mu.RLock()
	sess, ok := m.sessions[userID]
	m.mu.RUnlock()
	if !ok {
		return
	}

	sess.mu.Lock()
	sess.appendLocked(m.now(), role, content, m.cfg.MaxHistory)
	sess.mu.Unlock()
}

// Clear unconditionally discards the user's session regardless of
// remaining TTL. It reports whether a session existed.
func (m *Manager) Clear(userID string) bool {
	m.mu.Lock()
	_, ok := m.sessions[userID]
	delete(m.sessions, userID)
	size := len(m.sessions)
	m.mu.Unlock()

	metrics.SessionsActive.Set(float64(size))
	if ok {
		slog.Debug("session cleared", "user", userID)
	}
	return ok
}

// Status reports the user's session state without refreshing its TTL.
// Expired sessions are reported as absent.
func (m *Manager) Status(userID string) (domain.SessionInfo, bool) {
	now := m.now()

	m.mu.RLock()
	sess, ok := m.sessions[userID]
	m.mu.RUnlock()
	if !ok {
		return domain.SessionInfo{}, false
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if now.Sub(sess.lastActiveAt) >= m.cfg.TTL {
		return domain.SessionInfo{}, false
	}
	return domain.SessionInfo{
		UserID:       userID,
		MessageCount: len(sess.history),
		CreatedAt:    sess.createdAt,
		LastActiveAt: sess.lastActiveAt,
	}, true
}

// Stats aggregates manager-wide accounting. Expired-but-unswept
// sessions are excluded from the active count.
func (m *Manager) Stats() domain.SessionStats {
	now := m.now()

	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := domain.SessionStats{
		SweepRuns:     m.sweepRuns,
		SessionsSwept: m.sessionsSwept,
	}
	var oldest time.Time
	for _, sess := range m.sessions {
		sess.mu.Lock()
		live := now.Sub(sess.lastActiveAt) < m.cfg.TTL
		created := sess.createdAt
		messages := len(sess.history)
		sess.mu.Unlock()
		if !live {
			continue
		}
		stats.ActiveSessions++
		stats.TotalMessages += messages
		if oldest.IsZero() || created.Before(oldest) {
			oldest = created
		}
	}
	if !oldest.IsZero() {
		stats.OldestSessionAge = now.Sub(oldest)
	}
	return stats
}

// obtain returns a live session for userID, creating a replacement
// when none exists or the existing one expired. Expired sessions are
// replaced wholesale, never reset in place.
func (m *Manager) obtain(ctx context.Context, userID string) (*session, bool, error) {
	now := m.now()

	m.mu.RLock()
	prev, existed := m.sessions[userID]
	m.mu.RUnlock()

	if existed && prev.touch(now, m.cfg.TTL) {
		return prev, false, nil
	}

	// Build the replacement before taking the registry lock; handle
	// creation must not block other users.
	handle, err := m.backend.NewHandle(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("new chat handle for user: %w", err)
	}

	fresh := &session{handle: handle, createdAt: now, lastActiveAt: now}

	m.mu.Lock()
	if cur, ok := m.sessions[userID]; ok && cur != prev {
		// Another request created this user's session while we were
		// building ours; keep the winner.
		m.mu.Unlock()
		cur.touch(now, m.cfg.TTL)
		return cur, false, nil
	}
	m.sessions[userID] = fresh
	size := len(m.sessions)
	m.mu.Unlock()

	metrics.SessionsActive.Set(float64(size))
	slog.Debug("session created", "user", userID, "replaced_expired", existed)

	if existed && m.OnExpired != nil {
		m.OnExpired(userID)
	}
	if m.OnCreated != nil {
		m.OnCreated(userID)
	}
	return fresh, true, nil
}
