package retrieval

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/vietddude/recap/internal/core/domain"
	"github.com/vietddude/recap/internal/infra/fetch"
	"github.com/vietddude/recap/internal/metrics"
	"github.com/vietddude/recap/internal/retrieval/failure"
	"github.com/vietddude/recap/internal/retrieval/routing"
)

// ErrAllSkipped is the aggregate cause when every strategy in a chain
// was short-circuited by an open breaker.
var ErrAllSkipped = errors.New("all strategies skipped by open circuit breakers")

// Service resolves a URL to Markdown content by walking the source
// category's fallback chain with per-dependency circuit breaking and
// retries.
type Service struct {
	classifier *Classifier
	chains     map[domain.SourceCategory]FallbackChain
	strategies *fetch.Registry
	breakers   *routing.BreakerRegistry
	retry      routing.RetryConfig
}

// NewService validates the chain configuration against the registered
// strategies and creates the retrieval service.
func NewService(
	classifier *Classifier,
	rawChains map[domain.SourceCategory][]string,
	strategies *fetch.Registry,
	breakers *routing.BreakerRegistry,
	retry routing.RetryConfig,
) (*Service, error) {
	chains, err := BuildChains(rawChains, strategies)
	if err != nil {
		return nil, err
	}

	return &Service{
		classifier: classifier,
		chains:     chains,
		strategies: strategies,
		breakers:   breakers,
		retry:      retry,
	}, nil
}

// ChainFor returns the fallback chain for a category.
func (s *Service) ChainFor(category domain.SourceCategory) FallbackChain {
	return s.chains[category]
}

// Breakers exposes the breaker registry for status reporting.
func (s *Service) Breakers() *routing.BreakerRegistry {
	return s.breakers
}

// Retrieve fetches a URL through its fallback chain and returns the
// first successful content. When the whole chain is exhausted it
// returns a *failure.Failure aggregating what was observed.
func (s *Service) Retrieve(ctx context.Context, rawURL string) (*domain.Content, error) {
	target := RewriteURL(rawURL)
	category := s.classifier.Classify(target)
	chain := s.chains[category]

	slog.Info("retrieving content",
		"url", target,
		"category", category,
		"chain", []string(chain))

	var (
		tried    int
		lastKind = failure.KindUnknown
		lastErr  error
	)

	for _, name := range chain {
		strategy, ok := s.strategies.Get(name)
		if !ok {
			continue // chains are validated at startup
		}

		dependency := routing.DependencyKey(category, name)
		breaker := s.breakers.For(dependency)

		if !breaker.Allow() {
			tried++
			metrics.BreakerSkips.WithLabelValues(dependency).Inc()
			metrics.StrategyAttempts.WithLabelValues(name, "skipped").Inc()
			slog.Warn("skipping strategy, circuit open",
				"url", target, "strategy", name, "dependency", dependency)
			continue
		}

		start := time.Now()
		var content *domain.Content
		err := routing.CallWithRetry(ctx, func(ctx context.Context) error {
			c, fetchErr := strategy.Fetch(ctx, target)
			if fetchErr != nil {
				return fetchErr
			}
			content = c
			return nil
		}, s.retry)
		latency := time.Since(start)
		metrics.StrategyLatency.WithLabelValues(name).Observe(latency.Seconds())

		tried++
		if err == nil {
			breaker.RecordSuccess()
			metrics.StrategyAttempts.WithLabelValues(name, "success").Inc()
			metrics.RetrievalRequests.WithLabelValues(string(category), "success").Inc()

			content.Strategy = name
			slog.Info("content retrieved",
				"url", target,
				"strategy", name,
				"latency", latency,
				"title", content.Title)
			return content, nil
		}

		kind := failure.Classify(err)
		if kind != failure.KindUnknown {
			lastKind = kind
		}
		lastErr = err

		// Quota exhaustion says nothing about dependency health, so it
		// stays out of breaker accounting.
		if !kind.BreakerNeutral() {
			breaker.RecordFailure()
		}
		metrics.StrategyAttempts.WithLabelValues(name, "failure").Inc()
		slog.Warn("strategy failed",
			"url", target,
			"strategy", name,
			"kind", kind,
			"latency", latency,
			"error", err)

		// A cancelled request would only feed spurious failures into
		// the remaining breakers.
		if ctx.Err() != nil {
			break
		}
	}

	if lastErr == nil {
		lastErr = ErrAllSkipped
	}

	metrics.RetrievalRequests.WithLabelValues(string(category), "failure").Inc()
	slog.Error("all strategies exhausted",
		"url", target,
		"category", category,
		"strategies_tried", tried,
		"kind", lastKind)

	return nil, &failure.Failure{Kind: lastKind, StrategiesTried: tried, Err: lastErr}
}
