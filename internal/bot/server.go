package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// maxWebhookBody caps how much of a callback body is read. Platform
// batches are small; anything larger is hostile.
const maxWebhookBody = 1 << 20 // 1 MiB

// Server receives platform webhooks, verifies their signature and fans
// events out to the handler.
type Server struct {
	channelSecret string
	handler       *Handler
	server        *http.Server

	// baseCtx is the parent of all event-processing contexts, so
	// in-flight events drain on shutdown.
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewServer creates the webhook server.
func NewServer(channelSecret string, port int, handler *Handler) *Server {
	mux := http.NewServeMux()
	s := &Server{
		channelSecret: channelSecret,
		handler:       handler,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	s.baseCtx, s.cancel = context.WithCancel(context.Background())

	mux.HandleFunc("/callback", s.handleCallback)

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops accepting callbacks and waits for in-flight events.
func (s *Server) Stop(ctx context.Context) error {
	err := s.server.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		// Out of patience; cut off the stragglers.
		s.cancel()
		<-done
	}
	s.cancel()
	return err
}

// handleCallback verifies the request and acknowledges immediately;
// events are processed concurrently so slow retrievals never make the
// platform time out and redeliver.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		slog.Warn("failed to read webhook body", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if !ValidSignature(s.channelSecret, body, r.Header.Get("X-Line-Signature")) {
		slog.Warn("rejected webhook with invalid signature", "remote", r.RemoteAddr)
		w.WriteHeader(http.StatusForbidden)
		return
	}

	var req WebhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		slog.Warn("unparseable webhook body", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	for _, event := range req.Events {
		s.wg.Add(1)
		go func(event WebhookEvent) {
			defer s.wg.Done()
			s.handler.HandleEvent(s.baseCtx, event)
		}(event)
	}

	w.WriteHeader(http.StatusOK)
}
