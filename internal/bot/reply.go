package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/vietddude/recap/internal/retrieval/failure"
)

const (
	defaultReplyEndpoint = "https://api.line.me/v2/bot/message/reply"

	// Platform limit for one text message.
	maxReplyRunes = 5000
)

// QuickButton is one postback quick-reply button under a message.
type QuickButton struct {
	Label string
	Data  string
}

// Reply is one outgoing text message.
type Reply struct {
	Text    string
	Buttons []QuickButton
}

// Replier delivers replies for a webhook event.
type Replier interface {
	Reply(ctx context.Context, replyToken string, replies []Reply) error
}

// Platform wire format for the reply endpoint.
type replyRequest struct {
	ReplyToken string        `json:"replyToken"`
	Messages   []textMessage `json:"messages"`
}

type textMessage struct {
	Type       string      `json:"type"`
	Text       string      `json:"text"`
	QuickReply *quickReply `json:"quickReply,omitempty"`
}

type quickReply struct {
	Items []quickReplyItem `json:"items"`
}

type quickReplyItem struct {
	Type   string         `json:"type"`
	Action postbackAction `json:"action"`
}

type postbackAction struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	Data  string `json:"data"`
}

// LineReplier sends replies through the platform reply API.
type LineReplier struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewLineReplier creates a replier authenticated by the channel access
// token.
func NewLineReplier(channelToken string) *LineReplier {
	return &LineReplier{
		endpoint: defaultReplyEndpoint,
		token:    channelToken,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Reply posts up to five text messages against the event's reply token.
func (r *LineReplier) Reply(ctx context.Context, replyToken string, replies []Reply) error {
	if len(replies) == 0 {
		return nil
	}
	// Reply tokens accept at most five messages.
	if len(replies) > 5 {
		replies = replies[:5]
	}

	payload := replyRequest{ReplyToken: replyToken}
	for _, reply := range replies {
		payload.Messages = append(payload.Messages, toTextMessage(reply))
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode reply: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build reply request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.token)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("reply api returned %d: %s", resp.StatusCode, detail)
	}
	return nil
}

func toTextMessage(reply Reply) textMessage {
	msg := textMessage{Type: "text", Text: truncateRunes(reply.Text, maxReplyRunes)}
	if len(reply.Buttons) == 0 {
		return msg
	}
	qr := &quickReply{}
	for _, btn := range reply.Buttons {
		qr.Items = append(qr.Items, quickReplyItem{
			Type: "action",
			Action: postbackAction{
				Type:  "postback",
				Label: btn.Label,
				Data:  btn.Data,
			},
		})
	}
	msg.QuickReply = qr
	return msg
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

// ConsoleReplier logs replies instead of delivering them. It stands in
// for the platform client when no channel token is configured, so
// local runs still exercise the full pipeline.
type ConsoleReplier struct{}

// Reply logs each reply at info level.
func (ConsoleReplier) Reply(_ context.Context, replyToken string, replies []Reply) error {
	for _, reply := range replies {
		slog.Info("reply (console)", "reply_token", replyToken, "text", reply.Text, "buttons", len(reply.Buttons))
	}
	return nil
}

// ContentFetcher retrieves an uploaded message payload (image bytes)
// from the platform data API.
type ContentFetcher interface {
	FetchContent(ctx context.Context, messageID string) (mime string, data []byte, err error)
}

const defaultContentEndpoint = "https://api-data.line.me/v2/bot/message"

// LineContentClient fetches message content over the platform data API.
type LineContentClient struct {
	endpoint string
	token    string
	client   *http.Client
	maxBytes int64
}

// NewLineContentClient creates a content client authenticated by the
// channel access token.
func NewLineContentClient(channelToken string) *LineContentClient {
	return &LineContentClient{
		endpoint: defaultContentEndpoint,
		token:    channelToken,
		client:   &http.Client{Timeout: 30 * time.Second},
		maxBytes: 10 << 20, // 10 MiB
	}
}

// FetchContent downloads the payload of one message.
func (c *LineContentClient) FetchContent(ctx context.Context, messageID string) (string, []byte, error) {
	url := fmt.Sprintf("%s/%s/content", c.endpoint, messageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", nil, fmt.Errorf("failed to build content request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("failed to fetch message content: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, &failure.StatusError{URL: url, Code: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes))
	if err != nil {
		return "", nil, fmt.Errorf("failed to read message content: %w", err)
	}
	return resp.Header.Get("Content-Type"), data, nil
}
