package gemini

import (
	"context"
	"net/url"
	"strings"

	"github.com/google/generative-ai-go/genai"

	"github.com/vietddude/recap/internal/core/domain"
	"github.com/vietddude/recap/internal/infra/backend"
)

const chatSystemPrompt = "你是一位友善的繁體中文助理。回答要準確、自然，" +
	"需要最新資訊時使用搜尋結果，並在不確定時直接說明。"

// NewHandle starts a conversation on the chat model with Google Search
// grounding enabled.
func (c *Client) NewHandle(ctx context.Context) (backend.ChatHandle, error) {
	model := c.genai.GenerativeModel(c.cfg.ChatModel)
	model.SetTemperature(c.cfg.Temperature)
	model.SetMaxOutputTokens(c.cfg.MaxOutputTokens)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(chatSystemPrompt)},
	}
	model.Tools = []*genai.Tool{
		{GoogleSearchRetrieval: &genai.GoogleSearchRetrieval{}},
	}

	return &chatHandle{client: c, session: model.StartChat()}, nil
}

type chatHandle struct {
	client  *Client
	session *genai.ChatSession
}

// Send exchanges one message. HasHistory reflects whether the session
// held any turns before this exchange.
func (h *chatHandle) Send(ctx context.Context, text string) (*domain.Answer, error) {
	hasHistory := len(h.session.History) > 0

	var resp *genai.GenerateContentResponse
	err := h.client.invoke(ctx, keyChat, func(ctx context.Context) error {
		r, sendErr := h.session.SendMessage(ctx, genai.Text(text))
		if sendErr != nil {
			return sendErr
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	answer := answerFrom(resp)
	answer.HasHistory = hasHistory
	return answer, nil
}

// answerFrom extracts the text parts and deduplicated citation sources
// of the first candidate.
func answerFrom(resp *genai.GenerateContentResponse) *domain.Answer {
	answer := &domain.Answer{}
	if resp == nil || len(resp.Candidates) == 0 {
		return answer
	}

	candidate := resp.Candidates[0]
	if candidate.Content != nil {
		var sb strings.Builder
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		answer.Text = strings.TrimSpace(sb.String())
	}

	if candidate.CitationMetadata != nil {
		seen := make(map[string]bool)
		for _, source := range candidate.CitationMetadata.CitationSources {
			if source == nil || source.URI == nil || *source.URI == "" {
				continue
			}
			uri := *source.URI
			if seen[uri] {
				continue
			}
			seen[uri] = true
			answer.Sources = append(answer.Sources, domain.Source{
				Title: titleFromURI(uri),
				URI:   uri,
			})
		}
	}

	return answer
}

// titleFromURI falls back to the host name; citation sources carry no
// title of their own.
func titleFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Hostname() == "" {
		return uri
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
