// Package redis caches summaries, stores postback payloads and
// deduplicates webhook deliveries. Every feature degrades when no
// Redis URL is configured: the cache always misses, dedupe admits
// everything, and postback messages fall back to an in-process map.
package redis

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/recap/internal/core/domain"
	"github.com/vietddude/recap/internal/metrics"
)

const (
	defaultSummaryTTL = 6 * time.Hour
	messageTTL        = 24 * time.Hour
	eventSeenTTL      = time.Hour
)

// Config holds Redis connection configuration. An empty URL disables
// Redis entirely.
type Config struct {
	URL        string        `yaml:"url"`
	Password   string        `yaml:"password"`
	SummaryTTL time.Duration `yaml:"summary_ttl"`
}

// Client wraps Redis for the summary cache, the postback message store
// and webhook dedupe.
type Client struct {
	rdb        *redis.Client
	summaryTTL time.Duration

	// Postback fallback storage when Redis is absent.
	mu       sync.Mutex
	messages map[string]memEntry
}

type memEntry struct {
	msg       domain.StoredMessage
	expiresAt time.Time
}

// NewClient connects to Redis, or returns a disabled client when no
// URL is configured.
func NewClient(cfg Config) (*Client, error) {
	if cfg.SummaryTTL <= 0 {
		cfg.SummaryTTL = defaultSummaryTTL
	}

	client := &Client{
		summaryTTL: cfg.SummaryTTL,
		messages:   make(map[string]memEntry),
	}
	if cfg.URL == "" {
		return client, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	client.rdb = rdb
	return client, nil
}

// Enabled reports whether a Redis connection is live.
func (c *Client) Enabled() bool {
	return c.rdb != nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

// Ping checks connection liveness for health probes.
func (c *Client) Ping(ctx context.Context) error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Ping(ctx).Err()
}

// Key helpers
func summaryKey(url string, mode domain.SummaryMode) string {
	digest := sha1.Sum([]byte(url))
	return fmt.Sprintf("summary:%s:%s", hex.EncodeToString(digest[:]), mode)
}

func messageKey(id string) string {
	return fmt.Sprintf("msg:%s", id)
}

func eventKey(id string) string {
	return fmt.Sprintf("webhook_event:%s", id)
}

// GetSummary looks up a cached summary for the URL and mode.
func (c *Client) GetSummary(ctx context.Context, url string, mode domain.SummaryMode) (string, bool, error) {
	if c.rdb == nil {
		metrics.CacheMisses.WithLabelValues("summary").Inc()
		return "", false, nil
	}

	value, err := c.rdb.Get(ctx, summaryKey(url, mode)).Result()
	if errors.Is(err, redis.Nil) {
		metrics.CacheMisses.WithLabelValues("summary").Inc()
		return "", false, nil
	}
	if err != nil {
		metrics.CacheMisses.WithLabelValues("summary").Inc()
		return "", false, fmt.Errorf("get summary: %w", err)
	}

	metrics.CacheHits.WithLabelValues("summary").Inc()
	return value, true, nil
}

// SetSummary caches a summary for the URL and mode.
func (c *Client) SetSummary(ctx context.Context, url string, mode domain.SummaryMode, summary string) error {
	if c.rdb == nil {
		return nil
	}
	if err := c.rdb.Set(ctx, summaryKey(url, mode), summary, c.summaryTTL).Err(); err != nil {
		return fmt.Errorf("set summary: %w", err)
	}
	return nil
}

// MarkEventSeen records a webhook event ID and reports whether this
// delivery is the first one. Without Redis every delivery counts as
// first.
func (c *Client) MarkEventSeen(ctx context.Context, eventID string) (bool, error) {
	if c.rdb == nil || eventID == "" {
		return true, nil
	}

	first, err := c.rdb.SetNX(ctx, eventKey(eventID), "1", eventSeenTTL).Result()
	if err != nil {
		// Dedupe is best-effort; a failed check must not drop the
		// event.
		return true, fmt.Errorf("mark event seen: %w", err)
	}
	return first, nil
}
