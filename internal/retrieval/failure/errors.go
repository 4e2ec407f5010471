package failure

import (
	"fmt"
	"time"
)

// StatusError is an HTTP failure with the status code preserved for
// classification.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.URL, e.Code)
}

// ParseError reports content that transferred successfully but could
// not be used (empty body, unparseable markup, no captions).
type ParseError struct {
	URL    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %s", e.URL, e.Reason)
}

// QuotaError reports account-level quota exhaustion on a backend.
type QuotaError struct {
	Backend string
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s quota exhausted", e.Backend)
}

// RateLimitError reports throttling with an optional backend-suggested
// wait (zero when unknown).
type RateLimitError struct {
	Backend    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s rate limited, retry after %s", e.Backend, e.RetryAfter)
	}
	return fmt.Sprintf("%s rate limited", e.Backend)
}

// Failure is the aggregate returned when an entire fallback chain is
// exhausted. Kind carries the most informative classification observed
// (the last non-Unknown kind), StrategiesTried how many strategies ran
// or were skipped.
type Failure struct {
	Kind            Kind
	StrategiesTried int
	Err             error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("all %d strategies failed (%s): %v", f.StrategiesTried, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}
