// Package render fetches pages with a headless browser, for sites that
// assemble their content client-side or gate it behind bot checks.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"

	"github.com/vietddude/recap/internal/content"
	"github.com/vietddude/recap/internal/core/domain"
	"github.com/vietddude/recap/internal/infra/fetch"
	"github.com/vietddude/recap/internal/retrieval/failure"
)

// Config configures the headless browser strategy.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	// Timeout is the navigation budget per page.
	Timeout time.Duration
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
}

// Strategy renders a page in headless Chrome and converts the settled
// DOM. The browser is launched lazily on first use and shared across
// requests; pages are one per fetch and always closed.
type Strategy struct {
	cfg       Config
	converter *content.Converter

	mu      sync.Mutex
	browser *rod.Browser
}

// New creates the render strategy. No browser is started yet.
func New(cfg Config, converter *content.Converter) *Strategy {
	cfg.defaults()
	return &Strategy{cfg: cfg, converter: converter}
}

// Name returns the registry name.
func (s *Strategy) Name() string { return fetch.NameRender }

// Fetch renders the URL and converts the resulting DOM to Markdown.
func (s *Strategy) Fetch(ctx context.Context, url string) (*domain.Content, error) {
	browser, err := s.browserHandle()
	if err != nil {
		return nil, err
	}

	page, err := stealth.Page(browser)
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	defer page.Close()

	navCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(url); err != nil {
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		// A slow page may still have rendered enough to use.
		slog.Warn("wait load timed out, using partial DOM", "url", url, "error", err)
	}

	res, err := page.Context(navCtx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return nil, fmt.Errorf("serialize DOM: %w", err)
	}

	title, markdown, err := s.converter.FromHTML(res.Value.Str(), url)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(markdown) == "" {
		return nil, &failure.ParseError{URL: url, Reason: "empty content after rendering"}
	}

	return &domain.Content{
		URL:       url,
		Title:     title,
		Markdown:  markdown,
		FetchedAt: time.Now(),
	}, nil
}

// Close shuts the shared browser down.
func (s *Strategy) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser == nil {
		return nil
	}
	err := s.browser.Close()
	s.browser = nil
	return err
}

func (s *Strategy) browserHandle() (*rod.Browser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser != nil {
		return s.browser, nil
	}

	wsURL := s.cfg.RemoteURL
	if wsURL == "" {
		l := launcher.New().Headless(true)
		l = l.Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		wsURL = u
		slog.Info("launched local chrome", "url", wsURL)
	} else {
		slog.Info("connecting to remote chrome", "url", wsURL)
	}

	browser := rod.New().ControlURL(wsURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	s.browser = browser
	return browser, nil
}
