package video

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vietddude/recap/internal/content"
	"github.com/vietddude/recap/internal/retrieval/failure"
)

func TestVideoID(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://youtube.com/watch?v=dQw4w9WgXcQ&t=42s", "dQw4w9WgXcQ", false},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://m.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/shorts/abc123XYZ_-", "abc123XYZ_-", false},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/live/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/@somechannel", "", true},
		{"https://www.youtube.com/watch", "", true},
		{"https://example.com/watch?v=dQw4w9WgXcQ", "", true},
	}

	for _, tt := range tests {
		got, err := VideoID(tt.url)
		if tt.wantErr {
			if err == nil {
				t.Errorf("VideoID(%q) error = nil, want error", tt.url)
			}
			continue
		}
		if err != nil {
			t.Errorf("VideoID(%q) error = %v", tt.url, err)
			continue
		}
		if got != tt.want {
			t.Errorf("VideoID(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestPickTrack(t *testing.T) {
	languages := []string{"zh-TW", "zh", "en"}
	tests := []struct {
		name   string
		tracks []captionTrack
		want   string
	}{
		{
			"exact first choice",
			[]captionTrack{{LanguageCode: "en"}, {LanguageCode: "zh-TW"}},
			"zh-TW",
		},
		{
			"second choice",
			[]captionTrack{{LanguageCode: "ja"}, {LanguageCode: "zh"}},
			"zh",
		},
		{
			"prefix match",
			[]captionTrack{{LanguageCode: "ja"}, {LanguageCode: "en-US"}},
			"en-US",
		},
		{
			"fallback to first",
			[]captionTrack{{LanguageCode: "ko"}, {LanguageCode: "ja"}},
			"ko",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pickTrack(tt.tracks, languages); got.LanguageCode != tt.want {
				t.Errorf("pickTrack() = %s, want %s", got.LanguageCode, tt.want)
			}
		})
	}
}

func TestFetchTranscript(t *testing.T) {
	mux := http.NewServeMux()
	ts := httptest.NewServer(mux)
	defer ts.Close()

	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("v") != "dQw4w9WgXcQ" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `<html><head><title>示範影片 - YouTube</title></head><body>
<script>var ytInitialPlayerResponse = {"captions":{"playerCaptionsTracklistRenderer":{
"captionTracks":[{"baseUrl":"%s/api/timedtext?lang=en","languageCode":"en"},
{"baseUrl":"%s/api/timedtext?lang=zh-TW","languageCode":"zh-TW"}]}}};</script>
</body></html>`, ts.URL, ts.URL)
	})
	mux.HandleFunc("/api/timedtext", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("lang") != "zh-TW" {
			t.Errorf("fetched lang %q, want zh-TW preferred", r.URL.Query().Get("lang"))
		}
		w.Write([]byte(`<?xml version="1.0" encoding="utf-8"?>
<transcript><text start="0" dur="2">第一句話</text><text start="2" dur="3">it&amp;#39;s the second line</text></transcript>`))
	})

	s := New(Config{WatchBase: ts.URL}, content.NewConverter(0))
	got, err := s.Fetch(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if got.Title != "示範影片" {
		t.Errorf("Title = %q, want 示範影片", got.Title)
	}
	if !strings.Contains(got.Markdown, "第一句話") {
		t.Errorf("Markdown = %q, missing first caption", got.Markdown)
	}
	if !strings.Contains(got.Markdown, "it's the second line") {
		t.Errorf("Markdown = %q, want unescaped second caption", got.Markdown)
	}
}

func TestFetchNoCaptions(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Video - YouTube</title></head><body>no captions here</body></html>`))
	}))
	defer ts.Close()

	s := New(Config{WatchBase: ts.URL}, content.NewConverter(0))
	_, err := s.Fetch(context.Background(), "https://youtu.be/dQw4w9WgXcQ")

	var parseErr *failure.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Fetch() error = %T, want *failure.ParseError", err)
	}
}

func TestFetchRejectsNonVideoURL(t *testing.T) {
	s := New(Config{}, content.NewConverter(0))
	_, err := s.Fetch(context.Background(), "https://www.youtube.com/@channel")

	var parseErr *failure.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Fetch() error = %T, want *failure.ParseError", err)
	}
}
