package domain

import "time"

// BreakerState is the lifecycle state of a circuit breaker.
type BreakerState string

const (
	BreakerStateClosed   BreakerState = "closed"
	BreakerStateOpen     BreakerState = "open"
	BreakerStateHalfOpen BreakerState = "half_open"
)

// BreakerStatus is a point-in-time snapshot of one breaker, exposed
// through the status command and the detailed health endpoint.
type BreakerStatus struct {
	Dependency       string       `json:"dependency"`
	State            BreakerState `json:"state"`
	ConsecutiveFails int          `json:"consecutive_fails"`
	RetryAt          time.Time    `json:"retry_at,omitempty"`
}
