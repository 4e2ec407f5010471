package bot

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/vietddude/recap/internal/core/domain"
	"github.com/vietddude/recap/internal/infra/backend"
	"github.com/vietddude/recap/internal/infra/storage"
	"github.com/vietddude/recap/internal/metrics"
)

// urlPattern finds the first URL in a message. Everything after the
// scheme up to whitespace counts, matching how chat clients linkify.
var urlPattern = regexp.MustCompile(`https?://[^\s]+`)

// Retriever runs the category-routed fallback retrieval pipeline.
type Retriever interface {
	Retrieve(ctx context.Context, rawURL string) (*domain.Content, error)
}

// Conversations is the session-facing surface the handler needs.
type Conversations interface {
	Chat(ctx context.Context, userID, text string) (*domain.Answer, error)
	Clear(userID string) bool
	Status(userID string) (domain.SessionInfo, bool)
}

// EventCache is the Redis-backed surface the handler needs: event
// dedupe, the summary cache and the postback message store. The
// disabled Redis client satisfies it with always-miss semantics.
type EventCache interface {
	MarkEventSeen(ctx context.Context, eventID string) (bool, error)
	GetSummary(ctx context.Context, url string, mode domain.SummaryMode) (string, bool, error)
	SetSummary(ctx context.Context, url string, mode domain.SummaryMode, summary string) error
	SaveMessage(ctx context.Context, msg domain.StoredMessage) error
	GetMessage(ctx context.Context, id string) (domain.StoredMessage, bool, error)
}

// HandlerConfig tunes event processing.
type HandlerConfig struct {
	// BookmarkLimit caps /bookmarks and /search listings.
	BookmarkLimit int
	// EventTimeout bounds the processing of one webhook event,
	// including retrieval and backend calls.
	EventTimeout time.Duration
}

func (c *HandlerConfig) defaults() {
	if c.BookmarkLimit <= 0 {
		c.BookmarkLimit = 10
	}
	if c.EventTimeout <= 0 {
		c.EventTimeout = 60 * time.Second
	}
}

// Deps are the collaborators a Handler dispatches into.
type Deps struct {
	Retriever  Retriever
	Summarizer backend.Summarizer
	Vision     backend.VisionDescriber
	Drafter    backend.DraftWriter
	Sessions   Conversations
	Bookmarks  storage.BookmarkRepository
	History    storage.SearchHistoryRepository
	Cache      EventCache
	Replier    Replier
	// Content fetches image bytes from the platform; nil when no
	// channel token is configured (console mode).
	Content ContentFetcher
}

// Handler routes webhook events to the retrieval, session and bookmark
// pipelines and delivers the replies.
type Handler struct {
	cfg  HandlerConfig
	deps Deps
}

// NewHandler creates a webhook event handler.
func NewHandler(cfg HandlerConfig, deps Deps) *Handler {
	cfg.defaults()
	return &Handler{cfg: cfg, deps: deps}
}

// HandleEvent processes one webhook event to completion and delivers
// the reply. It is called on its own goroutine per event; errors are
// turned into user-facing messages, never propagated.
func (h *Handler) HandleEvent(ctx context.Context, event WebhookEvent) {
	ctx, cancel := context.WithTimeout(ctx, h.cfg.EventTimeout)
	defer cancel()

	metrics.WebhookEvents.WithLabelValues(event.Type).Inc()

	first, err := h.deps.Cache.MarkEventSeen(ctx, event.WebhookEventID)
	if err != nil {
		slog.Warn("event dedupe check failed", "event_id", event.WebhookEventID, "error", err)
	}
	if !first {
		metrics.WebhookDuplicates.Inc()
		slog.Debug("dropping redelivered event", "event_id", event.WebhookEventID)
		return
	}

	var replies []Reply
	switch event.Type {
	case "message":
		replies = h.handleMessage(ctx, event)
	case "postback":
		replies = h.handlePostback(ctx, event)
	default:
		slog.Debug("ignoring webhook event", "type", event.Type)
	}

	if len(replies) == 0 || event.ReplyToken == "" {
		return
	}
	if err := h.deps.Replier.Reply(ctx, event.ReplyToken, replies); err != nil {
		slog.Error("failed to deliver reply", "user", event.Source.UserID, "error", err)
	}
}

func (h *Handler) handleMessage(ctx context.Context, event WebhookEvent) []Reply {
	if event.Message == nil {
		return nil
	}
	switch event.Message.Type {
	case "text":
		return h.handleText(ctx, event)
	case "image":
		return h.handleImage(ctx, event)
	default:
		slog.Debug("ignoring message", "message_type", event.Message.Type)
		return nil
	}
}

func (h *Handler) handleText(ctx context.Context, event WebhookEvent) []Reply {
	text := strings.TrimSpace(event.Message.Text)
	userID := event.Source.UserID

	switch {
	case text == "/clear":
		return []Reply{{Text: FormatCleared(h.deps.Sessions.Clear(userID))}}

	case text == "/status":
		info, ok := h.deps.Sessions.Status(userID)
		return []Reply{{Text: FormatStatus(info, ok)}}

	case text == "/bookmarks" || strings.HasPrefix(text, "/bookmarks "):
		keyword := strings.TrimSpace(strings.TrimPrefix(text, "/bookmarks"))
		return h.bookmarkReplies(ctx, userID, keyword, false)

	case text == "/search" || strings.HasPrefix(text, "/search "):
		keyword := strings.TrimSpace(strings.TrimPrefix(text, "/search"))
		if keyword == "" {
			return []Reply{{Text: "請在 /search 後面加上關鍵字，例如：/search docker"}}
		}
		return h.bookmarkReplies(ctx, userID, keyword, true)
	}

	if pageURL := urlPattern.FindString(text); pageURL != "" {
		return h.handleURL(ctx, event, pageURL, summaryModeOf(text))
	}
	return h.handleChat(ctx, userID, text)
}

// summaryModeOf reads an explicit mode flag off the end of the message.
func summaryModeOf(text string) domain.SummaryMode {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return domain.SummaryConcise
	}
	switch fields[len(fields)-1] {
	case "--detailed":
		return domain.SummaryDetailed
	case "--technical":
		return domain.SummaryTechnical
	default:
		return domain.SummaryConcise
	}
}

// handleURL runs the retrieve-summarize pipeline: summary cache first,
// then the fallback chain, then the summarizer. Successful summaries
// are bookmarked and kept for postback drafts.
func (h *Handler) handleURL(ctx context.Context, event WebhookEvent, pageURL string, mode domain.SummaryMode) []Reply {
	userID := event.Source.UserID

	if cached, ok, err := h.deps.Cache.GetSummary(ctx, pageURL, mode); err == nil && ok {
		slog.Debug("summary cache hit", "url", pageURL, "mode", mode)
		return h.summaryReplies(ctx, event, pageURL, cached)
	}

	content, err := h.deps.Retriever.Retrieve(ctx, pageURL)
	if err != nil {
		slog.Warn("retrieval failed", "url", pageURL, "user", userID, "error", err)
		return []Reply{{Text: FormatError(err)}}
	}

	summary, err := h.deps.Summarizer.Summarize(ctx, content, mode)
	if err != nil {
		slog.Warn("summarization failed", "url", pageURL, "error", err)
		return []Reply{{Text: FormatError(err)}}
	}

	if err := h.deps.Cache.SetSummary(ctx, pageURL, mode, summary); err != nil {
		slog.Warn("failed to cache summary", "url", pageURL, "error", err)
	}

	bookmark := &domain.Bookmark{
		UserID:      userID,
		URL:         pageURL,
		Title:       content.Title,
		Summary:     summary,
		SummaryMode: mode,
	}
	if err := h.deps.Bookmarks.Save(ctx, bookmark); err != nil {
		slog.Warn("failed to save bookmark", "url", pageURL, "error", err)
	}

	return h.summaryReplies(ctx, event, pageURL, summary)
}

// summaryReplies stores the summary for later postbacks and attaches
// the draft quick-reply buttons.
func (h *Handler) summaryReplies(ctx context.Context, event WebhookEvent, pageURL, summary string) []Reply {
	msg := domain.StoredMessage{
		ID:        event.Message.ID,
		UserID:    event.Source.UserID,
		Text:      summary,
		URL:       pageURL,
		CreatedAt: time.Now(),
	}
	if err := h.deps.Cache.SaveMessage(ctx, msg); err != nil {
		slog.Warn("failed to store message for postbacks", "message_id", msg.ID, "error", err)
	}

	return []Reply{{
		Text: FormatSummary(pageURL, summary),
		Buttons: []QuickButton{
			{Label: "產生推文", Data: "action=tweet&id=" + msg.ID},
			{Label: "產生 Slack 貼文", Data: "action=slack&id=" + msg.ID},
		},
	}}
}

func (h *Handler) handleChat(ctx context.Context, userID, text string) []Reply {
	answer, err := h.deps.Sessions.Chat(ctx, userID, text)
	if err != nil {
		slog.Warn("chat failed", "user", userID, "error", err)
		return []Reply{{Text: FormatError(err)}}
	}
	return []Reply{{Text: FormatAnswer(answer)}}
}

func (h *Handler) handleImage(ctx context.Context, event WebhookEvent) []Reply {
	if h.deps.Content == nil {
		return []Reply{{Text: "目前的執行模式無法讀取圖片"}}
	}

	mime, data, err := h.deps.Content.FetchContent(ctx, event.Message.ID)
	if err != nil {
		slog.Warn("failed to fetch image content", "message_id", event.Message.ID, "error", err)
		return []Reply{{Text: FormatError(err)}}
	}

	description, err := h.deps.Vision.Describe(ctx, mime, data)
	if err != nil {
		slog.Warn("vision failed", "message_id", event.Message.ID, "error", err)
		return []Reply{{Text: FormatError(err)}}
	}
	return []Reply{{Text: description}}
}

func (h *Handler) handlePostback(ctx context.Context, event WebhookEvent) []Reply {
	if event.Postback == nil {
		return nil
	}

	values, err := url.ParseQuery(event.Postback.Data)
	if err != nil {
		slog.Warn("unparseable postback data", "data", event.Postback.Data, "error", err)
		return nil
	}

	action := domain.PostbackAction(values.Get("action"))
	if action != domain.ActionTweet && action != domain.ActionSlack {
		slog.Debug("ignoring postback", "action", string(action))
		return nil
	}

	msg, ok, err := h.deps.Cache.GetMessage(ctx, values.Get("id"))
	if err != nil {
		slog.Warn("failed to load stored message", "message_id", values.Get("id"), "error", err)
	}
	if !ok {
		return []Reply{{Text: "找不到原始摘要，請重新傳送網址"}}
	}

	draft, err := h.deps.Drafter.Draft(ctx, action, msg.Text, msg.URL)
	if err != nil {
		slog.Warn("draft generation failed", "action", string(action), "error", err)
		return []Reply{{Text: FormatError(err)}}
	}
	return []Reply{{Text: draft}}
}

func (h *Handler) bookmarkReplies(ctx context.Context, userID, keyword string, recordSearch bool) []Reply {
	var (
		bookmarks []*domain.Bookmark
		err       error
	)
	if keyword == "" {
		bookmarks, err = h.deps.Bookmarks.ListByUser(ctx, userID, h.cfg.BookmarkLimit)
	} else {
		bookmarks, err = h.deps.Bookmarks.Search(ctx, userID, keyword, h.cfg.BookmarkLimit)
	}
	if err != nil {
		slog.Error("bookmark lookup failed", "user", userID, "error", err)
		return []Reply{{Text: "書籤功能暫時無法使用，請稍後再試"}}
	}

	if recordSearch {
		record := &domain.SearchRecord{
			UserID:      userID,
			Keyword:     keyword,
			ResultCount: len(bookmarks),
		}
		if err := h.deps.History.Record(ctx, record); err != nil {
			slog.Warn("failed to record search", "user", userID, "error", err)
		}
	}

	return []Reply{{Text: FormatBookmarks(bookmarks, keyword)}}
}
