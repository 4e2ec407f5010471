package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RetrievalRequests tracks retrieval requests per source category
	RetrievalRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recap_retrieval_requests_total",
			Help: "Total number of content retrieval requests",
		},
		[]string{"category", "outcome"},
	)

	// StrategyAttempts tracks individual strategy executions
	StrategyAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recap_strategy_attempts_total",
			Help: "Total number of fetch strategy attempts",
		},
		[]string{"strategy", "outcome"},
	)

	// StrategyLatency tracks fetch strategy latency
	StrategyLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recap_strategy_latency_seconds",
			Help:    "Fetch strategy latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)

	// BreakerTransitions tracks circuit breaker state changes
	BreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recap_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"dependency", "from", "to"},
	)

	// BreakerSkips tracks strategies skipped by an open breaker
	BreakerSkips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recap_breaker_skips_total",
			Help: "Total number of calls skipped by an open circuit breaker",
		},
		[]string{"dependency"},
	)

	// BreakerState exposes the current state of each circuit breaker
	// (0 closed, 1 half-open, 2 open)
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "recap_breaker_state",
			Help: "Current circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"dependency"},
	)

	// GeminiRequests tracks AI backend calls per operation
	GeminiRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recap_gemini_requests_total",
			Help: "Total number of Gemini backend requests",
		},
		[]string{"backend", "outcome"},
	)

	// GeminiLatency tracks AI backend latency
	GeminiLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recap_gemini_latency_seconds",
			Help:    "Gemini backend latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"backend"},
	)

	// SessionsActive tracks currently live conversation sessions
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recap_sessions_active",
			Help: "Number of active conversation sessions",
		},
	)

	// SessionsSwept tracks sessions removed by the expiry sweeper
	SessionsSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recap_sessions_swept_total",
			Help: "Total number of expired sessions removed by the sweeper",
		},
	)

	// WebhookEvents tracks webhook events per type
	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recap_webhook_events_total",
			Help: "Total number of webhook events received",
		},
		[]string{"type"},
	)

	// WebhookDuplicates tracks redelivered webhook events that were dropped
	WebhookDuplicates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recap_webhook_duplicates_total",
			Help: "Total number of duplicate webhook events dropped",
		},
	)

	// CacheHits tracks cache hits per cache kind
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recap_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache"},
	)

	// CacheMisses tracks cache misses per cache kind
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recap_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache"},
	)

	// DBConnectionPoolUsage tracks database connection pool utilization
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recap_db_connection_pool_usage",
			Help: "Database connection pool usage percentage",
		},
	)
)
