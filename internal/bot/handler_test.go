package bot

import (
	"context"
	"strings"
	"testing"

	"github.com/vietddude/recap/internal/core/domain"
	"github.com/vietddude/recap/internal/infra/redis"
	"github.com/vietddude/recap/internal/infra/storage/memory"
	"github.com/vietddude/recap/internal/retrieval/failure"
)

// =============================================================================
// Mocks
// =============================================================================

type fakeRetriever struct {
	content *domain.Content
	err     error
	calls   int
}

func (f *fakeRetriever) Retrieve(_ context.Context, rawURL string) (*domain.Content, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	c := *f.content
	c.URL = rawURL
	return &c, nil
}

type fakeSummarizer struct {
	summary  string
	err      error
	calls    int
	lastMode domain.SummaryMode
}

func (f *fakeSummarizer) Summarize(_ context.Context, _ *domain.Content, mode domain.SummaryMode) (string, error) {
	f.calls++
	f.lastMode = mode
	return f.summary, f.err
}

type fakeVision struct {
	description string
	err         error
	lastMime    string
}

func (f *fakeVision) Describe(_ context.Context, mime string, _ []byte) (string, error) {
	f.lastMime = mime
	return f.description, f.err
}

type fakeDrafter struct {
	draft      string
	err        error
	lastAction domain.PostbackAction
	lastText   string
	lastURL    string
}

func (f *fakeDrafter) Draft(_ context.Context, action domain.PostbackAction, text, url string) (string, error) {
	f.lastAction = action
	f.lastText = text
	f.lastURL = url
	return f.draft, f.err
}

type fakeSessions struct {
	answer  *domain.Answer
	chatErr error
	chats   []string
	cleared []string
	info    domain.SessionInfo
	infoOK  bool
}

func (f *fakeSessions) Chat(_ context.Context, userID, text string) (*domain.Answer, error) {
	f.chats = append(f.chats, text)
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	return f.answer, nil
}

func (f *fakeSessions) Clear(userID string) bool {
	f.cleared = append(f.cleared, userID)
	return true
}

func (f *fakeSessions) Status(string) (domain.SessionInfo, bool) {
	return f.info, f.infoOK
}

type fakeContent struct {
	mime string
	data []byte
	err  error
}

func (f *fakeContent) FetchContent(context.Context, string) (string, []byte, error) {
	return f.mime, f.data, f.err
}

type captureReplier struct {
	tokens  []string
	replies [][]Reply
}

func (c *captureReplier) Reply(_ context.Context, token string, replies []Reply) error {
	c.tokens = append(c.tokens, token)
	c.replies = append(c.replies, replies)
	return nil
}

func (c *captureReplier) last(t *testing.T) []Reply {
	t.Helper()
	if len(c.replies) == 0 {
		t.Fatal("expected a reply to have been sent")
	}
	return c.replies[len(c.replies)-1]
}

// dupCache overlays duplicate tracking on the disabled Redis client.
type dupCache struct {
	*redis.Client
	seen map[string]bool
}

func (d *dupCache) MarkEventSeen(_ context.Context, eventID string) (bool, error) {
	if d.seen[eventID] {
		return false, nil
	}
	d.seen[eventID] = true
	return true, nil
}

// hitCache overlays a canned summary cache hit.
type hitCache struct {
	*redis.Client
	summary string
}

func (h *hitCache) GetSummary(context.Context, string, domain.SummaryMode) (string, bool, error) {
	return h.summary, true, nil
}

type fixture struct {
	retriever  *fakeRetriever
	summarizer *fakeSummarizer
	vision     *fakeVision
	drafter    *fakeDrafter
	sessions   *fakeSessions
	bookmarks  *memory.BookmarkRepo
	history    *memory.SearchHistoryRepo
	cache      *redis.Client
	replier    *captureReplier
	content    *fakeContent
}

func newFixture(t *testing.T) (*Handler, *fixture) {
	t.Helper()

	cache, err := redis.NewClient(redis.Config{})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	store := memory.NewMemoryStorage()

	fx := &fixture{
		retriever: &fakeRetriever{content: &domain.Content{
			Title:    "Go 語言最新版本發布",
			Markdown: "# Go\n內容",
			Strategy: "plain",
		}},
		summarizer: &fakeSummarizer{summary: "- Go 發布新版本\n#golang"},
		vision:     &fakeVision{description: "一張架構圖"},
		drafter:    &fakeDrafter{draft: "最新 Go 版本來啦 #golang"},
		sessions:   &fakeSessions{answer: &domain.Answer{Text: "你好"}},
		bookmarks:  memory.NewBookmarkRepo(store),
		history:    memory.NewSearchHistoryRepo(store),
		cache:      cache,
		replier:    &captureReplier{},
		content:    &fakeContent{mime: "image/jpeg", data: []byte{0xff, 0xd8}},
	}

	h := NewHandler(HandlerConfig{}, Deps{
		Retriever:  fx.retriever,
		Summarizer: fx.summarizer,
		Vision:     fx.vision,
		Drafter:    fx.drafter,
		Sessions:   fx.sessions,
		Bookmarks:  fx.bookmarks,
		History:    fx.history,
		Cache:      fx.cache,
		Replier:    fx.replier,
		Content:    fx.content,
	})
	return h, fx
}

func textEvent(id, userID, text string) WebhookEvent {
	return WebhookEvent{
		Type:           "message",
		WebhookEventID: "evt-" + id,
		ReplyToken:     "token-" + id,
		Source:         EventSource{Type: "user", UserID: userID},
		Message:        &EventMessage{ID: id, Type: "text", Text: text},
	}
}

// =============================================================================
// Tests
// =============================================================================

func TestURLMessageSummarizesAndBookmarks(t *testing.T) {
	h, fx := newFixture(t)
	ctx := context.Background()

	h.HandleEvent(ctx, textEvent("m1", "U1", "看看這篇 https://example.com/go-release"))

	replies := fx.replier.last(t)
	if len(replies) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(replies))
	}
	wantText := "https://example.com/go-release\n- Go 發布新版本\n#golang"
	if replies[0].Text != wantText {
		t.Errorf("reply text = %q, want %q", replies[0].Text, wantText)
	}
	if len(replies[0].Buttons) != 2 {
		t.Fatalf("expected 2 quick-reply buttons, got %d", len(replies[0].Buttons))
	}
	if replies[0].Buttons[0].Data != "action=tweet&id=m1" {
		t.Errorf("tweet button data = %q", replies[0].Buttons[0].Data)
	}
	if replies[0].Buttons[1].Data != "action=slack&id=m1" {
		t.Errorf("slack button data = %q", replies[0].Buttons[1].Data)
	}

	saved, err := fx.bookmarks.ListByUser(ctx, "U1", 10)
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(saved) != 1 {
		t.Fatalf("expected 1 bookmark, got %d", len(saved))
	}
	if saved[0].Title != "Go 語言最新版本發布" {
		t.Errorf("bookmark title = %q", saved[0].Title)
	}
	if saved[0].URL != "https://example.com/go-release" {
		t.Errorf("bookmark url = %q", saved[0].URL)
	}

	// The summary must be retrievable for later postbacks.
	msg, ok, err := fx.cache.GetMessage(ctx, "m1")
	if err != nil || !ok {
		t.Fatalf("GetMessage() = %v, %v, %v", msg, ok, err)
	}
	if msg.Text != "- Go 發布新版本\n#golang" {
		t.Errorf("stored message text = %q", msg.Text)
	}
}

func TestURLMessageModeFlag(t *testing.T) {
	h, fx := newFixture(t)

	h.HandleEvent(context.Background(), textEvent("m1", "U1", "https://example.com/paper --technical"))

	if fx.summarizer.lastMode != domain.SummaryTechnical {
		t.Errorf("summary mode = %q, want technical", fx.summarizer.lastMode)
	}

	h.HandleEvent(context.Background(), textEvent("m2", "U1", "https://example.com/paper --detailed"))
	if fx.summarizer.lastMode != domain.SummaryDetailed {
		t.Errorf("summary mode = %q, want detailed", fx.summarizer.lastMode)
	}
}

func TestURLMessageRetrievalFailure(t *testing.T) {
	h, fx := newFixture(t)
	fx.retriever.err = &failure.Failure{
		Kind:            failure.KindNotFound,
		StrategiesTried: 3,
	}

	h.HandleEvent(context.Background(), textEvent("m1", "U1", "https://example.com/gone"))

	replies := fx.replier.last(t)
	if !strings.Contains(replies[0].Text, "找不到該頁面") {
		t.Errorf("reply = %q, want not-found message", replies[0].Text)
	}
	if !strings.Contains(replies[0].Text, "3 種讀取方式") {
		t.Errorf("reply = %q, want strategies suffix", replies[0].Text)
	}
	if fx.summarizer.calls != 0 {
		t.Errorf("summarizer called %d times on failed retrieval", fx.summarizer.calls)
	}

	saved, _ := fx.bookmarks.ListByUser(context.Background(), "U1", 10)
	if len(saved) != 0 {
		t.Errorf("expected no bookmark after failure, got %d", len(saved))
	}
}

func TestSummaryCacheHitSkipsPipeline(t *testing.T) {
	h, fx := newFixture(t)
	h.deps.Cache = &hitCache{Client: fx.cache, summary: "快取的摘要"}

	h.HandleEvent(context.Background(), textEvent("m1", "U1", "https://example.com/cached"))

	if fx.retriever.calls != 0 {
		t.Errorf("retriever called %d times on cache hit", fx.retriever.calls)
	}
	if fx.summarizer.calls != 0 {
		t.Errorf("summarizer called %d times on cache hit", fx.summarizer.calls)
	}

	replies := fx.replier.last(t)
	if !strings.Contains(replies[0].Text, "快取的摘要") {
		t.Errorf("reply = %q, want cached summary", replies[0].Text)
	}
	if len(replies[0].Buttons) != 2 {
		t.Errorf("expected draft buttons on cached reply, got %d", len(replies[0].Buttons))
	}
}

func TestPlainTextGoesToChat(t *testing.T) {
	h, fx := newFixture(t)
	fx.sessions.answer = &domain.Answer{Text: "當然好", HasHistory: true}

	h.HandleEvent(context.Background(), textEvent("m1", "U1", "幫我想個週末行程"))

	if len(fx.sessions.chats) != 1 || fx.sessions.chats[0] != "幫我想個週末行程" {
		t.Fatalf("chats = %v", fx.sessions.chats)
	}
	replies := fx.replier.last(t)
	if !strings.HasPrefix(replies[0].Text, "💬 [對話中] ") {
		t.Errorf("reply = %q, want history prefix", replies[0].Text)
	}
}

func TestClearCommand(t *testing.T) {
	h, fx := newFixture(t)

	h.HandleEvent(context.Background(), textEvent("m1", "U1", "/clear"))

	if len(fx.sessions.cleared) != 1 || fx.sessions.cleared[0] != "U1" {
		t.Fatalf("cleared = %v", fx.sessions.cleared)
	}
	if len(fx.sessions.chats) != 0 {
		t.Errorf("chat backend invoked for /clear: %v", fx.sessions.chats)
	}
	replies := fx.replier.last(t)
	if !strings.Contains(replies[0].Text, "已清除對話記錄") {
		t.Errorf("reply = %q", replies[0].Text)
	}
}

func TestStatusCommand(t *testing.T) {
	h, fx := newFixture(t)
	fx.sessions.infoOK = false

	h.HandleEvent(context.Background(), textEvent("m1", "U1", "/status"))

	replies := fx.replier.last(t)
	if replies[0].Text != "目前沒有進行中的對話" {
		t.Errorf("reply = %q", replies[0].Text)
	}
	if len(fx.sessions.chats) != 0 {
		t.Errorf("chat backend invoked for /status: %v", fx.sessions.chats)
	}
}

func TestBookmarksCommand(t *testing.T) {
	h, fx := newFixture(t)
	ctx := context.Background()

	seed := []*domain.Bookmark{
		{UserID: "U1", URL: "https://go.dev/blog", Title: "Go Blog"},
		{UserID: "U1", URL: "https://example.com/docker", Title: "Docker 入門"},
	}
	for _, bm := range seed {
		if err := fx.bookmarks.Save(ctx, bm); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	h.HandleEvent(ctx, textEvent("m1", "U1", "/bookmarks"))
	replies := fx.replier.last(t)
	if !strings.Contains(replies[0].Text, "最近的書籤（2 筆）") {
		t.Errorf("listing = %q", replies[0].Text)
	}

	h.HandleEvent(ctx, textEvent("m2", "U1", "/bookmarks docker"))
	replies = fx.replier.last(t)
	if !strings.Contains(replies[0].Text, "Docker 入門") || strings.Contains(replies[0].Text, "Go Blog") {
		t.Errorf("filtered listing = %q", replies[0].Text)
	}

	// Plain /bookmarks browsing is not recorded as a search.
	records, err := fx.history.RecentByUser(ctx, "U1", 10)
	if err != nil {
		t.Fatalf("RecentByUser() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no search records, got %d", len(records))
	}
}

func TestSearchCommandRecordsHistory(t *testing.T) {
	h, fx := newFixture(t)
	ctx := context.Background()

	err := fx.bookmarks.Save(ctx, &domain.Bookmark{UserID: "U1", URL: "https://example.com/k8s", Title: "Kubernetes 筆記"})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	h.HandleEvent(ctx, textEvent("m1", "U1", "/search kubernetes"))

	records, err := fx.history.RecentByUser(ctx, "U1", 10)
	if err != nil {
		t.Fatalf("RecentByUser() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 search record, got %d", len(records))
	}
	if records[0].Keyword != "kubernetes" || records[0].ResultCount != 1 {
		t.Errorf("record = %+v", records[0])
	}
}

func TestSearchCommandWithoutKeyword(t *testing.T) {
	h, fx := newFixture(t)

	h.HandleEvent(context.Background(), textEvent("m1", "U1", "/search"))

	replies := fx.replier.last(t)
	if !strings.Contains(replies[0].Text, "/search 後面加上關鍵字") {
		t.Errorf("reply = %q", replies[0].Text)
	}
}

func TestImageMessageDescribed(t *testing.T) {
	h, fx := newFixture(t)

	event := textEvent("m1", "U1", "")
	event.Message.Type = "image"
	event.Message.Text = ""
	h.HandleEvent(context.Background(), event)

	if fx.vision.lastMime != "image/jpeg" {
		t.Errorf("vision mime = %q", fx.vision.lastMime)
	}
	replies := fx.replier.last(t)
	if replies[0].Text != "一張架構圖" {
		t.Errorf("reply = %q", replies[0].Text)
	}
}

func TestImageMessageWithoutContentFetcher(t *testing.T) {
	h, fx := newFixture(t)
	h.deps.Content = nil

	event := textEvent("m1", "U1", "")
	event.Message.Type = "image"
	h.HandleEvent(context.Background(), event)

	replies := fx.replier.last(t)
	if !strings.Contains(replies[0].Text, "無法讀取圖片") {
		t.Errorf("reply = %q", replies[0].Text)
	}
}

func TestPostbackGeneratesDraft(t *testing.T) {
	h, fx := newFixture(t)
	ctx := context.Background()

	err := fx.cache.SaveMessage(ctx, domain.StoredMessage{
		ID:     "m1",
		UserID: "U1",
		Text:   "- Go 發布新版本",
		URL:    "https://example.com/go-release",
	})
	if err != nil {
		t.Fatalf("SaveMessage() error = %v", err)
	}

	event := WebhookEvent{
		Type:           "postback",
		WebhookEventID: "evt-p1",
		ReplyToken:     "token-p1",
		Source:         EventSource{UserID: "U1"},
		Postback:       &EventPostback{Data: "action=slack&id=m1"},
	}
	h.HandleEvent(ctx, event)

	if fx.drafter.lastAction != domain.ActionSlack {
		t.Errorf("draft action = %q, want slack", fx.drafter.lastAction)
	}
	if fx.drafter.lastText != "- Go 發布新版本" {
		t.Errorf("draft input = %q", fx.drafter.lastText)
	}
	if fx.drafter.lastURL != "https://example.com/go-release" {
		t.Errorf("draft url = %q", fx.drafter.lastURL)
	}
	replies := fx.replier.last(t)
	if replies[0].Text != "最新 Go 版本來啦 #golang" {
		t.Errorf("reply = %q", replies[0].Text)
	}
}

func TestPostbackUnknownMessage(t *testing.T) {
	h, fx := newFixture(t)

	event := WebhookEvent{
		Type:           "postback",
		WebhookEventID: "evt-p1",
		ReplyToken:     "token-p1",
		Source:         EventSource{UserID: "U1"},
		Postback:       &EventPostback{Data: "action=tweet&id=expired"},
	}
	h.HandleEvent(context.Background(), event)

	replies := fx.replier.last(t)
	if !strings.Contains(replies[0].Text, "找不到原始摘要") {
		t.Errorf("reply = %q", replies[0].Text)
	}
}

func TestDuplicateEventsAreDropped(t *testing.T) {
	h, fx := newFixture(t)
	h.deps.Cache = &dupCache{Client: fx.cache, seen: map[string]bool{}}

	event := textEvent("m1", "U1", "/status")
	h.HandleEvent(context.Background(), event)
	h.HandleEvent(context.Background(), event)

	if len(fx.replier.replies) != 1 {
		t.Errorf("expected 1 reply for redelivered event, got %d", len(fx.replier.replies))
	}
	if fx.replier.tokens[0] != "token-m1" {
		t.Errorf("reply token = %q", fx.replier.tokens[0])
	}
}
