// Package failure normalizes raw errors from fetch strategies and AI
// backends into a closed classification that drives retry, breaker, and
// user-messaging decisions. Nothing downstream inspects raw error detail.
package failure

// Kind is the closed classification of a failure.
type Kind string

const (
	KindNetwork       Kind = "network"
	KindRateLimited   Kind = "rate_limited"
	KindAccessDenied  Kind = "access_denied"
	KindNotFound      Kind = "not_found"
	KindServerError   Kind = "server_error"
	KindParseFailure  Kind = "parse_failure"
	KindQuotaExceeded Kind = "quota_exceeded"
	KindUnknown       Kind = "unknown"
)

// Retryable reports whether an operation failing with this kind may be
// attempted again against the same dependency. Quota exhaustion is an
// account condition, not a transient fault, so it is never retried.
func (k Kind) Retryable() bool {
	switch k {
	case KindNetwork, KindServerError, KindRateLimited:
		return true
	default:
		return false
	}
}

// BreakerNeutral reports whether the kind should be recorded as neither
// success nor failure in circuit breaker accounting.
func (k Kind) BreakerNeutral() bool {
	return k == KindQuotaExceeded
}
