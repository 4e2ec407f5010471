// Package video turns YouTube locators into transcripts by resolving
// the caption track from the watch page and decoding its timedtext.
package video

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/vietddude/recap/internal/content"
	"github.com/vietddude/recap/internal/core/domain"
	"github.com/vietddude/recap/internal/infra/fetch"
	"github.com/vietddude/recap/internal/retrieval/failure"
)

// Config configures the transcript strategy.
type Config struct {
	UserAgent string
	Timeout   time.Duration

	// WatchBase overrides the watch page origin. Defaults to the real
	// site; tests point it at a local server.
	WatchBase string

	// Languages lists caption languages in preference order.
	Languages []string
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 20 * time.Second
	}
	if c.WatchBase == "" {
		c.WatchBase = "https://www.youtube.com"
	}
	if len(c.Languages) == 0 {
		c.Languages = []string{"zh-TW", "zh", "en"}
	}
}

// Strategy fetches a video's transcript.
type Strategy struct {
	cfg       Config
	client    *http.Client
	converter *content.Converter
}

// New creates the video strategy.
func New(cfg Config, converter *content.Converter) *Strategy {
	cfg.defaults()
	return &Strategy{
		cfg:       cfg,
		client:    &http.Client{Timeout: cfg.Timeout},
		converter: converter,
	}
}

// Name returns the registry name.
func (s *Strategy) Name() string { return fetch.NameVideo }

// Fetch resolves the video id, picks the best caption track and decodes
// it to plain text.
func (s *Strategy) Fetch(ctx context.Context, rawURL string) (*domain.Content, error) {
	id, err := VideoID(rawURL)
	if err != nil {
		return nil, &failure.ParseError{URL: rawURL, Reason: err.Error()}
	}

	page, err := s.get(ctx, s.cfg.WatchBase+"/watch?v="+id)
	if err != nil {
		return nil, err
	}

	tracks := captionTracks(page)
	if len(tracks) == 0 {
		return nil, &failure.ParseError{URL: rawURL, Reason: "no caption tracks"}
	}
	track := pickTrack(tracks, s.cfg.Languages)

	transcript, err := s.fetchTranscript(ctx, track.BaseURL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(transcript) == "" {
		return nil, &failure.ParseError{URL: rawURL, Reason: "empty transcript"}
	}

	title := strings.TrimSuffix(content.Title(string(page)), " - YouTube")
	if title == "" {
		title = "YouTube " + id
	}

	return &domain.Content{
		URL:       rawURL,
		Title:     title,
		Markdown:  s.converter.Truncate(transcript),
		FetchedAt: time.Now(),
	}, nil
}

func (s *Strategy) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if s.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", s.cfg.UserAgent)
	}
	req.Header.Set("Accept-Language", "zh-TW,zh;q=0.9,en;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &failure.StatusError{URL: target, Code: resp.StatusCode}
	}
	return io.ReadAll(io.LimitReader(resp.Body, 5<<20))
}

func (s *Strategy) fetchTranscript(ctx context.Context, trackURL string) (string, error) {
	body, err := s.get(ctx, trackURL)
	if err != nil {
		return "", err
	}

	var doc struct {
		Lines []struct {
			Text string `xml:",chardata"`
		} `xml:"text"`
	}
	if err := xml.Unmarshal(body, &doc); err != nil {
		return "", fmt.Errorf("parse timedtext: %w", err)
	}

	lines := make([]string, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		// Timedtext double-escapes entities; one more pass after the
		// XML decoder.
		text := strings.TrimSpace(html.UnescapeString(line.Text))
		if text != "" {
			lines = append(lines, text)
		}
	}
	return strings.Join(lines, "\n"), nil
}

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{6,}$`)

// VideoID extracts the video id from the usual YouTube URL shapes.
func VideoID(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	var id string
	host := strings.ToLower(u.Hostname())
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")

	switch {
	case host == "youtu.be":
		if len(segments) > 0 {
			id = segments[0]
		}
	case strings.HasSuffix(host, "youtube.com"):
		switch {
		case u.Path == "/watch":
			id = u.Query().Get("v")
		case len(segments) == 2 && (segments[0] == "shorts" || segments[0] == "embed" || segments[0] == "live"):
			id = segments[1]
		}
	}

	if !videoIDPattern.MatchString(id) {
		return "", fmt.Errorf("no video id in %s", rawURL)
	}
	return id, nil
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
}

var captionTracksPattern = regexp.MustCompile(`"captionTracks":(\[.*?\])`)

// captionTracks pulls the caption track list out of the watch page's
// embedded player response.
func captionTracks(page []byte) []captionTrack {
	m := captionTracksPattern.FindSubmatch(page)
	if m == nil {
		return nil
	}
	var tracks []captionTrack
	if err := json.Unmarshal(m[1], &tracks); err != nil {
		return nil
	}
	return tracks
}

// pickTrack prefers exact language matches in order, then language
// prefixes, then whatever is first.
func pickTrack(tracks []captionTrack, languages []string) captionTrack {
	for _, lang := range languages {
		for _, track := range tracks {
			if track.LanguageCode == lang {
				return track
			}
		}
	}
	for _, lang := range languages {
		for _, track := range tracks {
			if strings.HasPrefix(track.LanguageCode, lang+"-") {
				return track
			}
		}
	}
	return tracks[0]
}
