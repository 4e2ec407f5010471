package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type chanReplier struct {
	got chan []Reply
}

func (c *chanReplier) Reply(_ context.Context, _ string, replies []Reply) error {
	c.got <- replies
	return nil
}

func TestCallbackVerifiesAndProcesses(t *testing.T) {
	h, _ := newFixture(t)
	replier := &chanReplier{got: make(chan []Reply, 1)}
	h.deps.Replier = replier
	srv := NewServer("test-secret", 0, h)

	body, err := json.Marshal(WebhookRequest{
		Destination: "bot",
		Events:      []WebhookEvent{textEvent("m1", "U1", "/status")},
	})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/callback", bytes.NewReader(body))
	req.Header.Set("X-Line-Signature", sign("test-secret", body))
	rec := httptest.NewRecorder()
	srv.handleCallback(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	// Processing is asynchronous; the ack must not wait for it.
	select {
	case replies := <-replier.got:
		if len(replies) != 1 {
			t.Errorf("expected 1 reply, got %d", len(replies))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event was never processed")
	}
}

func TestCallbackRejectsInvalidSignature(t *testing.T) {
	h, _ := newFixture(t)
	srv := NewServer("test-secret", 0, h)

	body := []byte(`{"events":[]}`)
	req := httptest.NewRequest(http.MethodPost, "/callback", bytes.NewReader(body))
	req.Header.Set("X-Line-Signature", sign("wrong-secret", body))
	rec := httptest.NewRecorder()
	srv.handleCallback(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestCallbackRejectsNonPost(t *testing.T) {
	h, _ := newFixture(t)
	srv := NewServer("test-secret", 0, h)

	req := httptest.NewRequest(http.MethodGet, "/callback", nil)
	rec := httptest.NewRecorder()
	srv.handleCallback(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestCallbackRejectsMalformedBody(t *testing.T) {
	h, _ := newFixture(t)
	srv := NewServer("test-secret", 0, h)

	body := []byte(`{"events": not-json`)
	req := httptest.NewRequest(http.MethodPost, "/callback", bytes.NewReader(body))
	req.Header.Set("X-Line-Signature", sign("test-secret", body))
	rec := httptest.NewRecorder()
	srv.handleCallback(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
