package routing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/vietddude/recap/internal/retrieval/failure"
)

// RetryConfig defines retry behavior.
type RetryConfig struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64
	JitterFraction  float64
}

// DefaultRetryConfig provides sensible defaults.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     3,
	InitialDelay:    2 * time.Second,
	MaxDelay:        10 * time.Second,
	BackoffMultiple: 2.0,
	JitterFraction:  0.2,
}

// CallWithRetry executes op with exponential backoff. Only failures
// classified as retryable are attempted again; everything else is
// returned to the caller after the first attempt so the fallback chain
// can move on. A backend-suggested retry-after overrides a shorter
// computed delay, capped at MaxDelay.
func CallWithRetry(ctx context.Context, op func(context.Context) error, config RetryConfig) error {
	var lastErr error

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}

		lastErr = err

		if !failure.Classify(err).Retryable() {
			return err // Stop immediately, let the next strategy try
		}

		if attempt == config.MaxAttempts-1 {
			break
		}

		delay := calculateBackoff(attempt, config)
		if hint := failure.RetryAfter(err); hint > delay {
			delay = hint
			if delay > config.MaxDelay {
				delay = config.MaxDelay
			}
		}

		slog.Debug("retrying after failure",
			"attempt", attempt+1,
			"max_attempts", config.MaxAttempts,
			"delay", delay,
			"error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", config.MaxAttempts, lastErr)
}

func calculateBackoff(attempt int, config RetryConfig) time.Duration {
	delay := float64(config.InitialDelay) * math.Pow(config.BackoffMultiple, float64(attempt))
	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}
	if config.JitterFraction > 0 {
		delay += rand.Float64() * config.JitterFraction * delay
	}
	return time.Duration(delay)
}
