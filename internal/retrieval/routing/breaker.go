// Package routing guards outbound dependencies with retries and
// circuit breaking.
//
// This package contains:
//   - Breaker: per-dependency circuit breaker (closed/open/half-open)
//   - BreakerRegistry: lazy breaker creation keyed by dependency
//   - Retry: retry logic with exponential backoff and jitter
package routing

import (
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/recap/internal/core/domain"
	"github.com/vietddude/recap/internal/metrics"
)

// BreakerConfig defines circuit breaker behavior for one dependency.
type BreakerConfig struct {
	FailureThreshold int
	Cooldown         time.Duration
}

// DefaultFetchBreakerConfig guards fetch strategies.
var DefaultFetchBreakerConfig = BreakerConfig{
	FailureThreshold: 5,
	Cooldown:         60 * time.Second,
}

// DefaultAIBreakerConfig guards Gemini backends, which are slower to
// recover and more expensive to hammer.
var DefaultAIBreakerConfig = BreakerConfig{
	FailureThreshold: 3,
	Cooldown:         30 * time.Second,
}

// Breaker is a circuit breaker for a single dependency.
type Breaker struct {
	dependency string
	config     BreakerConfig
	now        func() time.Time

	mu               sync.Mutex
	state            State
	consecutiveFails int
	openedAt         time.Time
	trialInFlight    bool
}

// NewBreaker creates a closed breaker for a dependency.
func NewBreaker(dependency string, config BreakerConfig) *Breaker {
	metrics.BreakerState.WithLabelValues(dependency).Set(stateGaugeValue(domain.BreakerStateClosed))
	return &Breaker{
		dependency: dependency,
		config:     config,
		now:        time.Now,
		state:      domain.BreakerStateClosed,
	}
}

func stateGaugeValue(s State) float64 {
	switch s {
	case domain.BreakerStateHalfOpen:
		return 1
	case domain.BreakerStateOpen:
		return 2
	default:
		return 0
	}
}

// Allow reports whether a call may proceed. When the cooldown of an
// open breaker has elapsed, exactly one caller is admitted as the
// half-open trial; everyone else keeps being rejected until the trial
// reports its outcome.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case domain.BreakerStateOpen:
		if b.now().Sub(b.openedAt) < b.config.Cooldown {
			return false
		}
		b.transition(domain.BreakerStateHalfOpen)
		b.trialInFlight = true
		return true
	case domain.BreakerStateHalfOpen:
		if b.trialInFlight {
			return false
		}
		b.trialInFlight = true
		return true
	default:
		return true
	}
}

// RecordSuccess reports a successful call. A half-open trial success
// closes the breaker.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case domain.BreakerStateClosed:
		b.consecutiveFails = 0
	case domain.BreakerStateHalfOpen:
		b.trialInFlight = false
		b.consecutiveFails = 0
		b.transition(domain.BreakerStateClosed)
	}
	// A success reported while open came from a call admitted before
	// the breaker tripped; the cooldown stays authoritative.
}

// RecordFailure reports a failed call. Crossing the threshold while
// closed, or failing the half-open trial, opens the breaker and arms a
// fresh cooldown.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case domain.BreakerStateClosed:
		b.consecutiveFails++
		if b.consecutiveFails >= b.config.FailureThreshold {
			b.openedAt = b.now()
			b.transition(domain.BreakerStateOpen)
		}
	case domain.BreakerStateHalfOpen:
		b.trialInFlight = false
		b.openedAt = b.now()
		b.transition(domain.BreakerStateOpen)
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Status returns a point-in-time snapshot for status reporting.
func (b *Breaker) Status() domain.BreakerStatus {
	b.mu.Lock()
	defer b.mu.Unlock()

	status := domain.BreakerStatus{
		Dependency:       b.dependency,
		State:            b.state,
		ConsecutiveFails: b.consecutiveFails,
	}
	if b.state == domain.BreakerStateOpen {
		status.RetryAt = b.openedAt.Add(b.config.Cooldown)
	}
	return status
}

// transition applies a state change; callers hold b.mu.
func (b *Breaker) transition(to State) {
	from := b.state
	if !CanTransition(from, to) {
		return
	}
	b.state = to

	metrics.BreakerTransitions.WithLabelValues(b.dependency, string(from), string(to)).Inc()
	metrics.BreakerState.WithLabelValues(b.dependency).Set(stateGaugeValue(to))

	switch to {
	case domain.BreakerStateOpen:
		slog.Warn("circuit breaker opened",
			"dependency", b.dependency,
			"consecutive_fails", b.consecutiveFails,
			"retry_at", b.openedAt.Add(b.config.Cooldown))
	case domain.BreakerStateHalfOpen:
		slog.Info("circuit breaker half-open, admitting trial call",
			"dependency", b.dependency)
	case domain.BreakerStateClosed:
		slog.Info("circuit breaker closed", "dependency", b.dependency)
	}
}
