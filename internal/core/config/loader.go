package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default reads well-known environment variables into a configuration,
// for running without a config file.
func Default() *AppConfig {
	cfg := &AppConfig{}
	cfg.Line.ChannelSecret = os.Getenv("LINE_CHANNEL_SECRET")
	cfg.Line.ChannelToken = os.Getenv("LINE_CHANNEL_ACCESS_TOKEN")
	cfg.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	cfg.Retrieval.Scrape.APIKey = os.Getenv("FIRECRAWL_API_KEY")
	cfg.Redis.URL = os.Getenv("REDIS_URL")
	cfg.Database.URL = os.Getenv("DATABASE_URL")
	cfg.applyDefaults()
	return cfg
}

func (cfg *AppConfig) applyDefaults() {
	if cfg.Line.Port == 0 {
		cfg.Line.Port = 8080
	}
	if cfg.Health.Port == 0 {
		cfg.Health.Port = 9090
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}
