package retrieval

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/recap/internal/core/domain"
	"github.com/vietddude/recap/internal/infra/fetch"
	"github.com/vietddude/recap/internal/retrieval/failure"
	"github.com/vietddude/recap/internal/retrieval/routing"
)

type fakeStrategy struct {
	name string
	fn   func(call int) (*domain.Content, error)

	mu    sync.Mutex
	calls int
	urls  []string
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) Fetch(ctx context.Context, url string) (*domain.Content, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.urls = append(f.urls, url)
	f.mu.Unlock()
	return f.fn(call)
}

func (f *fakeStrategy) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func succeeding(name string) *fakeStrategy {
	return &fakeStrategy{name: name, fn: func(int) (*domain.Content, error) {
		return &domain.Content{Title: "ok", Markdown: "# ok"}, nil
	}}
}

func failing(name string, err error) *fakeStrategy {
	return &fakeStrategy{name: name, fn: func(int) (*domain.Content, error) {
		return nil, err
	}}
}

func chainsFor(names ...string) map[domain.SourceCategory][]string {
	raw := make(map[domain.SourceCategory][]string, len(domain.Categories))
	for _, category := range domain.Categories {
		raw[category] = names
	}
	return raw
}

func newTestService(t *testing.T, breakerCfg routing.BreakerConfig, strategies ...fetch.Strategy) *Service {
	t.Helper()

	names := make([]string, 0, len(strategies))
	for _, s := range strategies {
		names = append(names, s.Name())
	}

	svc, err := NewService(
		NewClassifier(DefaultRules()),
		chainsFor(names...),
		fetch.NewRegistry(strategies...),
		routing.NewBreakerRegistry(breakerCfg, DefaultAIBreakerConfig),
		routing.RetryConfig{
			MaxAttempts:     3,
			InitialDelay:    time.Millisecond,
			MaxDelay:        2 * time.Millisecond,
			BackoffMultiple: 2.0,
		},
	)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc
}

func TestRetrieveFirstStrategyWins(t *testing.T) {
	alpha := succeeding("alpha")
	beta := succeeding("beta")
	svc := newTestService(t, DefaultFetchBreakerConfig, alpha, beta)

	content, err := svc.Retrieve(context.Background(), "https://example.com/post")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if content.Strategy != "alpha" {
		t.Errorf("content.Strategy = %s, want alpha", content.Strategy)
	}
	if beta.callCount() != 0 {
		t.Errorf("beta called %d times, want 0", beta.callCount())
	}
}

func TestRetrieveFallsBackOnNonRetryable(t *testing.T) {
	alpha := failing("alpha", &failure.StatusError{URL: "u", Code: 404})
	beta := succeeding("beta")
	svc := newTestService(t, DefaultFetchBreakerConfig, alpha, beta)

	content, err := svc.Retrieve(context.Background(), "https://example.com/post")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if content.Strategy != "beta" {
		t.Errorf("content.Strategy = %s, want beta", content.Strategy)
	}
	if alpha.callCount() != 1 {
		t.Errorf("alpha called %d times, want 1 (non-retryable)", alpha.callCount())
	}
}

func TestRetrieveRetriesTransient(t *testing.T) {
	alpha := &fakeStrategy{name: "alpha", fn: func(call int) (*domain.Content, error) {
		if call < 3 {
			return nil, errors.New("connection refused")
		}
		return &domain.Content{Markdown: "recovered"}, nil
	}}
	svc := newTestService(t, DefaultFetchBreakerConfig, alpha)

	content, err := svc.Retrieve(context.Background(), "https://example.com/post")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if content.Markdown != "recovered" {
		t.Errorf("content.Markdown = %q, want recovered", content.Markdown)
	}
	if alpha.callCount() != 3 {
		t.Errorf("alpha called %d times, want 3", alpha.callCount())
	}
}

func TestRetrieveSkipsOpenBreaker(t *testing.T) {
	alpha := failing("alpha", &failure.StatusError{URL: "u", Code: 403})
	beta := succeeding("beta")
	svc := newTestService(t, routing.BreakerConfig{FailureThreshold: 1, Cooldown: time.Hour}, alpha, beta)

	// First request trips alpha's breaker and falls through to beta.
	if _, err := svc.Retrieve(context.Background(), "https://example.com/post"); err != nil {
		t.Fatalf("first Retrieve() error = %v", err)
	}
	// Second request must not touch alpha at all.
	if _, err := svc.Retrieve(context.Background(), "https://example.com/post"); err != nil {
		t.Fatalf("second Retrieve() error = %v", err)
	}

	if alpha.callCount() != 1 {
		t.Errorf("alpha called %d times, want 1 (breaker open)", alpha.callCount())
	}
	if beta.callCount() != 2 {
		t.Errorf("beta called %d times, want 2", beta.callCount())
	}
}

func TestRetrieveAggregateFailure(t *testing.T) {
	alpha := failing("alpha", &failure.StatusError{URL: "u", Code: 404})
	beta := failing("beta", errors.New("weird"))
	svc := newTestService(t, DefaultFetchBreakerConfig, alpha, beta)

	_, err := svc.Retrieve(context.Background(), "https://example.com/post")
	if err == nil {
		t.Fatal("Retrieve() error = nil, want aggregate failure")
	}

	var agg *failure.Failure
	if !errors.As(err, &agg) {
		t.Fatalf("Retrieve() error = %T, want *failure.Failure", err)
	}
	if agg.StrategiesTried != 2 {
		t.Errorf("StrategiesTried = %d, want 2", agg.StrategiesTried)
	}
	// Unknown must not overwrite the informative 404.
	if agg.Kind != failure.KindNotFound {
		t.Errorf("Kind = %s, want %s", agg.Kind, failure.KindNotFound)
	}
}

func TestRetrieveKindPrefersFinalStrategy(t *testing.T) {
	alpha := failing("alpha", &failure.StatusError{URL: "u", Code: 404})
	beta := failing("beta", &failure.StatusError{URL: "u", Code: 403})
	svc := newTestService(t, DefaultFetchBreakerConfig, alpha, beta)

	_, err := svc.Retrieve(context.Background(), "https://example.com/post")

	var agg *failure.Failure
	if !errors.As(err, &agg) {
		t.Fatalf("Retrieve() error = %T, want *failure.Failure", err)
	}
	if agg.Kind != failure.KindAccessDenied {
		t.Errorf("Kind = %s, want %s (final strategy's kind)", agg.Kind, failure.KindAccessDenied)
	}
}

func TestRetrieveQuotaDoesNotFeedBreaker(t *testing.T) {
	alpha := failing("alpha", &failure.QuotaError{Backend: "scrape"})
	beta := succeeding("beta")
	svc := newTestService(t, routing.BreakerConfig{FailureThreshold: 1, Cooldown: time.Hour}, alpha, beta)

	for i := 0; i < 2; i++ {
		if _, err := svc.Retrieve(context.Background(), "https://example.com/post"); err != nil {
			t.Fatalf("Retrieve() #%d error = %v", i+1, err)
		}
	}

	// Quota failures are breaker-neutral, so alpha keeps being tried.
	if alpha.callCount() != 2 {
		t.Errorf("alpha called %d times, want 2", alpha.callCount())
	}
}

func TestRetrieveAllSkipped(t *testing.T) {
	alpha := failing("alpha", &failure.StatusError{URL: "u", Code: 500})
	svc := newTestService(t, routing.BreakerConfig{FailureThreshold: 1, Cooldown: time.Hour}, alpha)

	if _, err := svc.Retrieve(context.Background(), "https://example.com/post"); err == nil {
		t.Fatal("first Retrieve() error = nil, want failure")
	}
	callsAfterFirst := alpha.callCount()

	_, err := svc.Retrieve(context.Background(), "https://example.com/post")
	if err == nil {
		t.Fatal("second Retrieve() error = nil, want all-skipped failure")
	}
	if !errors.Is(err, ErrAllSkipped) {
		t.Errorf("error = %v, want ErrAllSkipped", err)
	}

	var agg *failure.Failure
	if !errors.As(err, &agg) {
		t.Fatalf("error = %T, want *failure.Failure", err)
	}
	if agg.StrategiesTried != 1 {
		t.Errorf("StrategiesTried = %d, want 1", agg.StrategiesTried)
	}
	if alpha.callCount() != callsAfterFirst {
		t.Errorf("alpha called while skipped: %d -> %d", callsAfterFirst, alpha.callCount())
	}
}

func TestRetrieveRewritesTwitterURL(t *testing.T) {
	alpha := succeeding("alpha")
	svc := newTestService(t, DefaultFetchBreakerConfig, alpha)

	if _, err := svc.Retrieve(context.Background(), "https://twitter.com/user/status/42"); err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	alpha.mu.Lock()
	defer alpha.mu.Unlock()
	if len(alpha.urls) != 1 || alpha.urls[0] != "https://api.fxtwitter.com/user/status/42" {
		t.Errorf("strategy saw %v, want the fxtwitter rewrite", alpha.urls)
	}
}

func TestRetrieveStopsAfterCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	alpha := &fakeStrategy{name: "alpha", fn: func(int) (*domain.Content, error) {
		cancel()
		return nil, errors.New("timeout")
	}}
	beta := succeeding("beta")
	svc := newTestService(t, DefaultFetchBreakerConfig, alpha, beta)

	_, err := svc.Retrieve(ctx, "https://example.com/post")
	if err == nil {
		t.Fatal("Retrieve() error = nil, want failure")
	}

	var agg *failure.Failure
	if !errors.As(err, &agg) {
		t.Fatalf("error = %T, want *failure.Failure", err)
	}
	if agg.Kind != failure.KindNetwork {
		t.Errorf("Kind = %s, want %s", agg.Kind, failure.KindNetwork)
	}
	if beta.callCount() != 0 {
		t.Errorf("beta called %d times after cancellation, want 0", beta.callCount())
	}
}
