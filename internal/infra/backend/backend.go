// Package backend declares the AI capabilities the bot consumes. The
// gemini sub-package provides the production implementation.
package backend

import (
	"context"
	"errors"

	"github.com/vietddude/recap/internal/core/domain"
)

// ErrUnavailable is returned when a backend's circuit breaker is open
// and the call was never attempted.
var ErrUnavailable = errors.New("backend temporarily unavailable")

// Conversational creates chat handles carrying server-side history.
type Conversational interface {
	NewHandle(ctx context.Context) (ChatHandle, error)
}

// ChatHandle is one user's running conversation. Handles are not safe
// for concurrent use; the session manager serializes per user.
type ChatHandle interface {
	Send(ctx context.Context, text string) (*domain.Answer, error)
}

// Summarizer produces a summary of retrieved content.
type Summarizer interface {
	Summarize(ctx context.Context, c *domain.Content, mode domain.SummaryMode) (string, error)
}

// VisionDescriber describes an image.
type VisionDescriber interface {
	Describe(ctx context.Context, mime string, image []byte) (string, error)
}

// DraftWriter turns a delivered summary into a social-media draft.
type DraftWriter interface {
	Draft(ctx context.Context, action domain.PostbackAction, text, url string) (string, error)
}
