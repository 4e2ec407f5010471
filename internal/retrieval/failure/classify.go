package failure

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Classify maps a raw error to its Kind. Typed errors are checked
// first, then transport-level errors (context, net, gRPC status, REST
// status), then message text as a last resort.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return fromStatusCode(statusErr.Code)
	}
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return KindParseFailure
	}
	var quotaErr *QuotaError
	if errors.As(err, &quotaErr) {
		return KindQuotaExceeded
	}
	var rateErr *RateLimitError
	if errors.As(err, &rateErr) {
		return KindRateLimited
	}

	// Abandoned or timed-out attempts still count as network failures
	// so a persistently slow dependency cannot evade the breaker.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindNetwork
	}

	if kind, ok := fromGRPCStatus(err); ok {
		return kind
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 && containsQuotaHint(apiErr.Message) {
			return KindQuotaExceeded
		}
		return fromStatusCode(apiErr.Code)
	}

	return fromMessage(err.Error())
}

// RetryAfter extracts a backend-suggested wait from the error, if any.
// Gemini quota and rate-limit errors carry RetryInfo detail.
func RetryAfter(err error) time.Duration {
	var rateErr *RateLimitError
	if errors.As(err, &rateErr) {
		return rateErr.RetryAfter
	}
	if st, ok := status.FromError(err); ok {
		for _, d := range st.Details() {
			if info, ok := d.(*errdetails.RetryInfo); ok && info.GetRetryDelay() != nil {
				return info.GetRetryDelay().AsDuration()
			}
		}
	}
	return 0
}

func fromGRPCStatus(err error) (Kind, bool) {
	st, ok := status.FromError(err)
	if !ok {
		return KindUnknown, false
	}
	switch st.Code() {
	case codes.ResourceExhausted:
		// Quota exhaustion and plain throttling share one code; quota
		// violations carry a QuotaFailure detail or say so outright.
		for _, d := range st.Details() {
			if _, ok := d.(*errdetails.QuotaFailure); ok {
				return KindQuotaExceeded, true
			}
		}
		if containsQuotaHint(st.Message()) {
			return KindQuotaExceeded, true
		}
		return KindRateLimited, true
	case codes.PermissionDenied, codes.Unauthenticated:
		return KindAccessDenied, true
	case codes.NotFound:
		return KindNotFound, true
	case codes.Internal, codes.Unavailable, codes.Aborted:
		return KindServerError, true
	case codes.DeadlineExceeded, codes.Canceled:
		return KindNetwork, true
	default:
		return KindUnknown, false
	}
}

func fromStatusCode(code int) Kind {
	switch {
	case code == 401 || code == 403:
		return KindAccessDenied
	case code == 402:
		return KindQuotaExceeded
	case code == 404 || code == 410:
		return KindNotFound
	case code == 429:
		return KindRateLimited
	case code >= 500:
		return KindServerError
	default:
		return KindUnknown
	}
}

func fromMessage(msg string) Kind {
	s := strings.ToLower(msg)
	switch {
	case containsQuotaHint(s):
		return KindQuotaExceeded
	case strings.Contains(s, "429") || strings.Contains(s, "rate limit") ||
		strings.Contains(s, "too many requests"):
		return KindRateLimited
	case strings.Contains(s, "403") || strings.Contains(s, "401") ||
		strings.Contains(s, "forbidden") || strings.Contains(s, "unauthorized") ||
		strings.Contains(s, "access denied"):
		return KindAccessDenied
	case strings.Contains(s, "no such host") || strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset") || strings.Contains(s, "timeout") ||
		strings.Contains(s, "broken pipe") || strings.Contains(s, "unexpected eof"):
		return KindNetwork
	case strings.Contains(s, "404"):
		return KindNotFound
	case strings.Contains(s, "500") || strings.Contains(s, "502") ||
		strings.Contains(s, "503") || strings.Contains(s, "bad gateway") ||
		strings.Contains(s, "service unavailable") ||
		strings.Contains(s, "internal server error"):
		return KindServerError
	default:
		return KindUnknown
	}
}

func containsQuotaHint(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "quota") || strings.Contains(s, "plan limit") ||
		strings.Contains(s, "count exceeded")
}
