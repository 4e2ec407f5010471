// Package retrieval turns URLs into Markdown content while surviving
// the failure modes of the sites it reads.
//
// This package offers resilient content retrieval with:
//   - Source classification (forum, article, docs, video, PDF, generic)
//   - Per-category fallback chains over pluggable fetch strategies
//   - Retry with exponential backoff and jitter
//   - Per-dependency circuit breakers
//   - A closed error taxonomy driving retry and messaging decisions
//
// # Quick Start
//
//	import "github.com/vietddude/recap/internal/retrieval"
//
//	// Setup
//	registry := fetch.NewRegistry(plainStrategy, renderStrategy, scrapeStrategy)
//	breakers := retrieval.NewBreakerRegistry(
//	    retrieval.DefaultFetchBreakerConfig,
//	    retrieval.DefaultAIBreakerConfig,
//	)
//	svc, err := retrieval.NewService(
//	    retrieval.NewClassifier(retrieval.DefaultRules()),
//	    retrieval.DefaultChains(),
//	    registry,
//	    breakers,
//	    retrieval.DefaultRetryConfig,
//	)
//
//	// Retrieve
//	content, err := svc.Retrieve(ctx, "https://www.ptt.cc/bbs/Tech_Job/M.123.html")
//
// # Package Structure
//
// The package is organized into sub-packages for maintainability:
//
//   - failure/ - Error taxonomy and classification
//   - routing/ - Retry executor, circuit breaker, breaker registry
//
// Most types are re-exported at the root level for convenience.
package retrieval

import (
	"github.com/vietddude/recap/internal/retrieval/failure"
	"github.com/vietddude/recap/internal/retrieval/routing"
)

// =============================================================================
// Re-exported types from failure package
// =============================================================================

// Kind is the closed classification of a failure.
type Kind = failure.Kind

// Failure is the aggregate returned when a whole fallback chain is
// exhausted.
type Failure = failure.Failure

// Failure kind constants
const (
	KindNetwork       = failure.KindNetwork
	KindRateLimited   = failure.KindRateLimited
	KindAccessDenied  = failure.KindAccessDenied
	KindNotFound      = failure.KindNotFound
	KindServerError   = failure.KindServerError
	KindParseFailure  = failure.KindParseFailure
	KindQuotaExceeded = failure.KindQuotaExceeded
	KindUnknown       = failure.KindUnknown
)

// ClassifyError maps a raw error to its failure kind.
var ClassifyError = failure.Classify

// =============================================================================
// Re-exported types from routing package
// =============================================================================

// RetryConfig defines retry behavior.
type RetryConfig = routing.RetryConfig

// BreakerConfig defines circuit breaker behavior for one dependency.
type BreakerConfig = routing.BreakerConfig

// Breaker is a circuit breaker for a single dependency.
type Breaker = routing.Breaker

// BreakerRegistry creates and hands out breakers keyed by dependency.
type BreakerRegistry = routing.BreakerRegistry

// DefaultRetryConfig provides sensible retry defaults.
var DefaultRetryConfig = routing.DefaultRetryConfig

// DefaultFetchBreakerConfig guards fetch strategies.
var DefaultFetchBreakerConfig = routing.DefaultFetchBreakerConfig

// DefaultAIBreakerConfig guards Gemini backends.
var DefaultAIBreakerConfig = routing.DefaultAIBreakerConfig

// NewBreakerRegistry creates a registry with separate configs for
// fetch strategies and AI backends.
var NewBreakerRegistry = routing.NewBreakerRegistry

// CallWithRetry executes an operation with exponential backoff.
var CallWithRetry = routing.CallWithRetry
