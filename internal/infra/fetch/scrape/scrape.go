// Package scrape fetches pages through a hosted scraping service that
// handles anti-bot measures and returns Markdown directly.
package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vietddude/recap/internal/content"
	"github.com/vietddude/recap/internal/core/domain"
	"github.com/vietddude/recap/internal/infra/fetch"
	"github.com/vietddude/recap/internal/retrieval/failure"
)

// Config configures the scraping service client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.firecrawl.dev"
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
}

// Strategy fetches a page through the scraping service.
type Strategy struct {
	cfg       Config
	client    *http.Client
	converter *content.Converter
}

// New creates the scrape strategy.
func New(cfg Config, converter *content.Converter) *Strategy {
	cfg.defaults()
	return &Strategy{
		cfg:       cfg,
		client:    &http.Client{Timeout: cfg.Timeout},
		converter: converter,
	}
}

// Name returns the registry name.
func (s *Strategy) Name() string { return fetch.NameScrape }

// Fetch asks the service to scrape the URL as Markdown.
func (s *Strategy) Fetch(ctx context.Context, url string) (*domain.Content, error) {
	reqBody, err := json.Marshal(map[string]any{
		"url":     url,
		"formats": []string{"markdown"},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.cfg.BaseURL+"/v1/scrape", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scrape call: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusPaymentRequired:
		return nil, &failure.QuotaError{Backend: "scrape"}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &failure.RateLimitError{
			Backend:    "scrape",
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	case resp.StatusCode != http.StatusOK:
		return nil, &failure.StatusError{URL: url, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var payload struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		Data    struct {
			Markdown string `json:"markdown"`
			Metadata struct {
				Title      string `json:"title"`
				StatusCode int    `json:"statusCode"`
			} `json:"metadata"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if !payload.Success {
		return nil, fmt.Errorf("scrape service error: %s", payload.Error)
	}
	if code := payload.Data.Metadata.StatusCode; code != 0 && code != http.StatusOK {
		return nil, &failure.StatusError{URL: url, Code: code}
	}

	markdown := s.converter.Truncate(content.StripBase64Images(payload.Data.Markdown))
	if strings.TrimSpace(markdown) == "" {
		return nil, &failure.ParseError{URL: url, Reason: "service returned empty markdown"}
	}

	return &domain.Content{
		URL:       url,
		Title:     payload.Data.Metadata.Title,
		Markdown:  markdown,
		FetchedAt: time.Now(),
	}, nil
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}
