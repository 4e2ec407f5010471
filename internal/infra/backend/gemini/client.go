// Package gemini implements the AI backends on Google's Generative AI
// API. Every call goes through the shared retry policy and a
// per-backend circuit breaker.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/vietddude/recap/internal/infra/backend"
	"github.com/vietddude/recap/internal/metrics"
	"github.com/vietddude/recap/internal/retrieval/failure"
	"github.com/vietddude/recap/internal/retrieval/routing"
)

// Breaker dependency keys, one per backend operation.
const (
	keyChat      = "gemini:chat"
	keySummarize = "gemini:summarize"
	keyVision    = "gemini:vision"
)

// ErrMissingAPIKey is returned when no API key is configured.
var ErrMissingAPIKey = errors.New("gemini api key is required")

// Config configures the Gemini client.
type Config struct {
	APIKey          string
	ChatModel       string
	SummaryModel    string
	VisionModel     string
	Temperature     float32
	MaxOutputTokens int32
}

func (c *Config) defaults() {
	if c.ChatModel == "" {
		c.ChatModel = "gemini-2.0-flash"
	}
	if c.SummaryModel == "" {
		c.SummaryModel = "gemini-2.0-flash"
	}
	if c.VisionModel == "" {
		c.VisionModel = "gemini-2.0-flash"
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.MaxOutputTokens == 0 {
		c.MaxOutputTokens = 2048
	}
}

// Client talks to Gemini. It implements backend.Conversational,
// backend.Summarizer and backend.VisionDescriber.
type Client struct {
	cfg      Config
	genai    *genai.Client
	breakers *routing.BreakerRegistry
	retry    routing.RetryConfig
}

// New connects to the Gemini API.
func New(
	ctx context.Context,
	cfg Config,
	breakers *routing.BreakerRegistry,
	retry routing.RetryConfig,
) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	cfg.defaults()

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Client{
		cfg:      cfg,
		genai:    client,
		breakers: breakers,
		retry:    retry,
	}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c.genai == nil {
		return nil
	}
	return c.genai.Close()
}

// invoke runs one backend call under breaker admission and retry, and
// feeds the outcome back into the breaker. Quota exhaustion is
// breaker-neutral.
func (c *Client) invoke(ctx context.Context, key string, op func(context.Context) error) error {
	breaker := c.breakers.For(key)
	if !breaker.Allow() {
		metrics.BreakerSkips.WithLabelValues(key).Inc()
		return fmt.Errorf("%s: %w", key, backend.ErrUnavailable)
	}

	start := time.Now()
	err := routing.CallWithRetry(ctx, op, c.retry)
	metrics.GeminiLatency.WithLabelValues(key).Observe(time.Since(start).Seconds())

	if err == nil {
		breaker.RecordSuccess()
		metrics.GeminiRequests.WithLabelValues(key, "success").Inc()
		return nil
	}

	kind := failure.Classify(err)
	if !kind.BreakerNeutral() {
		breaker.RecordFailure()
	}
	metrics.GeminiRequests.WithLabelValues(key, "failure").Inc()
	slog.Warn("gemini call failed", "backend", key, "kind", kind, "error", err)
	return err
}
