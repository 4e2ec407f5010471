package domain

import "time"

// Role identifies who produced a history entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry in a session's bounded history.
type Message struct {
	Role      Role
	Content   string
	Timestamp time.Time
}

// SessionInfo is the externally visible status of one session.
type SessionInfo struct {
	UserID       string
	MessageCount int
	CreatedAt    time.Time
	LastActiveAt time.Time
}

// SessionStats aggregates manager-wide session accounting.
type SessionStats struct {
	ActiveSessions   int
	TotalMessages    int
	OldestSessionAge time.Duration
	SweepRuns        int
	SessionsSwept    int
}
