package config

import (
	"time"

	redisclient "github.com/vietddude/recap/internal/infra/redis"
	"github.com/vietddude/recap/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Line      LineConfig         `yaml:"line"`
	Gemini    GeminiConfig       `yaml:"gemini"`
	Retrieval RetrievalConfig    `yaml:"retrieval"`
	Session   SessionConfig      `yaml:"session"`
	Redis     redisclient.Config `yaml:"redis"`
	Database  postgres.Config    `yaml:"database"`
	Health    HealthConfig       `yaml:"health"`
	Logging   LoggingConfig      `yaml:"logging"`
}

// LineConfig holds the messaging platform credentials and webhook port.
// An empty ChannelToken switches replies to console mode.
type LineConfig struct {
	ChannelSecret string `yaml:"channel_secret"`
	ChannelToken  string `yaml:"channel_token"`
	Port          int    `yaml:"port"`
}

// GeminiConfig holds AI backend settings.
type GeminiConfig struct {
	APIKey          string  `yaml:"api_key"`
	ChatModel       string  `yaml:"chat_model"`
	SummaryModel    string  `yaml:"summary_model"`
	VisionModel     string  `yaml:"vision_model"`
	Temperature     float32 `yaml:"temperature"`
	MaxOutputTokens int32   `yaml:"max_output_tokens"`
}

// RetrievalConfig holds fallback chains, resilience settings and
// per-strategy options.
type RetrievalConfig struct {
	// Chains maps a source category to its ordered strategy names.
	// Unset categories use the built-in defaults.
	Chains map[string][]string `yaml:"chains"`

	Retry        RetryConfig   `yaml:"retry"`
	FetchBreaker BreakerConfig `yaml:"fetch_breaker"`
	AIBreaker    BreakerConfig `yaml:"ai_breaker"`

	Plain  PlainConfig  `yaml:"plain"`
	Scrape ScrapeConfig `yaml:"scrape"`
	Render RenderConfig `yaml:"render"`
	Video  VideoConfig  `yaml:"video"`
}

// RetryConfig holds the shared exponential backoff policy.
type RetryConfig struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	InitialDelay    time.Duration `yaml:"initial_delay"`
	MaxDelay        time.Duration `yaml:"max_delay"`
	BackoffMultiple float64       `yaml:"backoff_multiple"`
	JitterFraction  float64       `yaml:"jitter_fraction"`
}

// BreakerConfig holds one circuit breaker class's thresholds.
type BreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	Cooldown         time.Duration `yaml:"cooldown"`
}

// PlainConfig holds plain HTTP fetch settings.
type PlainConfig struct {
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
}

// ScrapeConfig holds scraping service settings.
type ScrapeConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// RenderConfig holds headless browser settings.
type RenderConfig struct {
	// RemoteURL points at an external Chrome; empty launches one
	// locally.
	RemoteURL string        `yaml:"remote_url"`
	Timeout   time.Duration `yaml:"timeout"`
}

// VideoConfig holds caption retrieval settings.
type VideoConfig struct {
	Languages []string      `yaml:"languages"`
	Timeout   time.Duration `yaml:"timeout"`
}

// SessionConfig holds conversation session settings.
type SessionConfig struct {
	TTL             time.Duration `yaml:"ttl"`
	MaxHistory      int           `yaml:"max_history"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// HealthConfig holds the health/metrics endpoint settings.
type HealthConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}
