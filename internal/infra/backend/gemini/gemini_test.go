package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"

	"github.com/vietddude/recap/internal/core/domain"
	"github.com/vietddude/recap/internal/infra/backend"
	"github.com/vietddude/recap/internal/retrieval/failure"
	"github.com/vietddude/recap/internal/retrieval/routing"
)

func strPtr(s string) *string { return &s }

func TestAnswerFrom(t *testing.T) {
	t.Run("nil response", func(t *testing.T) {
		answer := answerFrom(nil)
		if answer.Text != "" || len(answer.Sources) != 0 {
			t.Fatalf("expected empty answer, got %+v", answer)
		}
	})

	t.Run("joins text parts", func(t *testing.T) {
		resp := &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content: &genai.Content{
					Parts: []genai.Part{genai.Text("前半"), genai.Text("後半")},
				},
			}},
		}
		answer := answerFrom(resp)
		if answer.Text != "前半後半" {
			t.Fatalf("Text = %q", answer.Text)
		}
	})

	t.Run("dedupes citation sources", func(t *testing.T) {
		resp := &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content: &genai.Content{
					Parts: []genai.Part{genai.Text("answer")},
				},
				CitationMetadata: &genai.CitationMetadata{
					CitationSources: []*genai.CitationSource{
						{URI: strPtr("https://www.example.com/a")},
						{URI: strPtr("https://www.example.com/a")},
						{URI: strPtr("https://docs.anthropic.com/b")},
						{URI: nil},
					},
				},
			}},
		}
		answer := answerFrom(resp)
		if len(answer.Sources) != 2 {
			t.Fatalf("Sources = %+v, want 2 entries", answer.Sources)
		}
		if answer.Sources[0].Title != "example.com" {
			t.Errorf("Sources[0].Title = %q", answer.Sources[0].Title)
		}
		if answer.Sources[1].URI != "https://docs.anthropic.com/b" {
			t.Errorf("Sources[1].URI = %q", answer.Sources[1].URI)
		}
	})
}

func TestTitleFromURI(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"https://www.example.com/page", "example.com"},
		{"https://docs.anthropic.com/claude", "docs.anthropic.com"},
		{"not a url", "not a url"},
	}
	for _, tt := range tests {
		if got := titleFromURI(tt.uri); got != tt.want {
			t.Errorf("titleFromURI(%q) = %q, want %q", tt.uri, got, tt.want)
		}
	}
}

func TestPromptFor(t *testing.T) {
	if !strings.Contains(promptFor(domain.SummaryDetailed), "條列") {
		t.Error("detailed prompt should ask for bullet points")
	}
	if !strings.Contains(promptFor(domain.SummaryTechnical), "API") {
		t.Error("technical prompt should mention technical detail")
	}
	if promptFor(domain.SummaryMode("bogus")) != promptConcise {
		t.Error("unknown mode should fall back to concise")
	}
}

// newTestClient builds a Client without a live API connection. invoke
// never touches the genai handle, so these tests exercise the breaker
// wiring in isolation.
func newTestClient(aiThreshold int) *Client {
	return &Client{
		breakers: routing.NewBreakerRegistry(
			routing.DefaultFetchBreakerConfig,
			routing.BreakerConfig{FailureThreshold: aiThreshold, Cooldown: time.Hour},
		),
		retry: routing.RetryConfig{
			MaxAttempts:     1,
			InitialDelay:    time.Millisecond,
			MaxDelay:        time.Millisecond,
			BackoffMultiple: 2.0,
		},
	}
}

func TestInvokeOpenBreakerSkipsCall(t *testing.T) {
	client := newTestClient(1)
	client.breakers.For(keyChat).RecordFailure()

	called := false
	err := client.invoke(context.Background(), keyChat, func(context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, backend.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if called {
		t.Error("op must not run while the breaker is open")
	}
}

func TestInvokeQuotaStaysBreakerNeutral(t *testing.T) {
	client := newTestClient(1)

	for i := 0; i < 3; i++ {
		err := client.invoke(context.Background(), keySummarize, func(context.Context) error {
			return &failure.QuotaError{Backend: "gemini"}
		})
		if err == nil {
			t.Fatal("expected quota error")
		}
	}

	if state := client.breakers.For(keySummarize).State(); state != domain.BreakerStateClosed {
		t.Fatalf("breaker state = %s, want closed after quota failures", state)
	}
}

func TestInvokeFailureOpensBreaker(t *testing.T) {
	client := newTestClient(2)

	boom := errors.New("503 service unavailable")
	for i := 0; i < 2; i++ {
		if err := client.invoke(context.Background(), keyVision, func(context.Context) error {
			return boom
		}); err == nil {
			t.Fatal("expected error")
		}
	}

	if state := client.breakers.For(keyVision).State(); state != domain.BreakerStateOpen {
		t.Fatalf("breaker state = %s, want open", state)
	}
}

func TestInvokeSuccessResetsBreaker(t *testing.T) {
	client := newTestClient(3)
	breaker := client.breakers.For(keyChat)
	breaker.RecordFailure()
	breaker.RecordFailure()

	if err := client.invoke(context.Background(), keyChat, func(context.Context) error {
		return nil
	}); err != nil {
		t.Fatalf("invoke: %v", err)
	}

	breaker.RecordFailure()
	breaker.RecordFailure()
	if state := breaker.State(); state != domain.BreakerStateClosed {
		t.Fatalf("breaker state = %s, want closed after success reset", state)
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(context.Background(), Config{}, nil, routing.DefaultRetryConfig)
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("err = %v, want ErrMissingAPIKey", err)
	}
}
