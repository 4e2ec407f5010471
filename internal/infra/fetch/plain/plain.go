// Package plain fetches pages with a single HTTP GET. It is the
// cheapest strategy and the last resort for script-heavy sites.
package plain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vietddude/recap/internal/content"
	"github.com/vietddude/recap/internal/core/domain"
	"github.com/vietddude/recap/internal/infra/fetch"
	"github.com/vietddude/recap/internal/retrieval/failure"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

// Config configures the plain HTTP strategy.
type Config struct {
	UserAgent   string
	Timeout     time.Duration
	MaxBodySize int64

	// Cookies maps host suffixes to cookies attached to matching
	// requests. The default carries the ptt.cc age gate.
	Cookies map[string]map[string]string
}

func (c *Config) defaults() {
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.MaxBodySize <= 0 {
		c.MaxBodySize = 10 << 20 // 10 MiB
	}
	if c.Cookies == nil {
		c.Cookies = map[string]map[string]string{
			"ptt.cc": {"over18": "1"},
		}
	}
}

// Strategy fetches a page over plain HTTP and converts the payload.
type Strategy struct {
	cfg       Config
	client    *http.Client
	converter *content.Converter
}

// New creates the plain strategy.
func New(cfg Config, converter *content.Converter) *Strategy {
	cfg.defaults()
	return &Strategy{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		converter: converter,
	}
}

// Name returns the registry name.
func (s *Strategy) Name() string { return fetch.NamePlain }

// Fetch retrieves the URL and converts HTML or JSON payloads to
// Markdown.
func (s *Strategy) Fetch(ctx context.Context, url string) (*domain.Content, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept-Language", "zh-TW,zh;q=0.9,en;q=0.8")
	s.attachCookies(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &failure.StatusError{URL: url, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.cfg.MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		return s.fromJSON(url, body)
	}

	title, markdown, err := s.converter.FromHTML(string(body), url)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(markdown) == "" {
		return nil, &failure.ParseError{URL: url, Reason: "empty content after conversion"}
	}

	return &domain.Content{
		URL:       url,
		Title:     title,
		Markdown:  markdown,
		FetchedAt: time.Now(),
	}, nil
}

// fromJSON renders JSON payloads. The fxtwitter mirror shape gets a
// readable post rendering; anything else is kept as a fenced block.
func (s *Strategy) fromJSON(url string, body []byte) (*domain.Content, error) {
	var payload struct {
		Tweet *struct {
			Text   string `json:"text"`
			Author *struct {
				Name       string `json:"name"`
				ScreenName string `json:"screen_name"`
			} `json:"author"`
			CreatedAt string `json:"created_at"`
		} `json:"tweet"`
	}

	if err := json.Unmarshal(body, &payload); err == nil && payload.Tweet != nil {
		tweet := payload.Tweet
		title := "推文"
		var sb strings.Builder
		if tweet.Author != nil {
			title = fmt.Sprintf("%s (@%s)", tweet.Author.Name, tweet.Author.ScreenName)
			fmt.Fprintf(&sb, "# %s\n\n", title)
		}
		sb.WriteString(tweet.Text)
		if tweet.CreatedAt != "" {
			fmt.Fprintf(&sb, "\n\n%s", tweet.CreatedAt)
		}
		return &domain.Content{
			URL:       url,
			Title:     title,
			Markdown:  s.converter.Truncate(sb.String()),
			FetchedAt: time.Now(),
		}, nil
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		return nil, &failure.ParseError{URL: url, Reason: "empty JSON payload"}
	}
	return &domain.Content{
		URL:       url,
		Markdown:  "```json\n" + s.converter.Truncate(text) + "\n```",
		FetchedAt: time.Now(),
	}, nil
}

func (s *Strategy) attachCookies(req *http.Request) {
	host := strings.ToLower(req.URL.Hostname())
	for suffix, cookies := range s.cfg.Cookies {
		if host != suffix && !strings.HasSuffix(host, "."+suffix) {
			continue
		}
		for name, value := range cookies {
			req.AddCookie(&http.Cookie{Name: name, Value: value})
		}
	}
}
