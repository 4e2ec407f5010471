package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"

	"github.com/vietddude/recap/internal/core/domain"
	"github.com/vietddude/recap/internal/retrieval/failure"
)

// Drafts run warmer than summaries; some variety between attempts is
// what the user wants here.
const draftTemperature = 0.5

const (
	promptTweet = `請將以下摘要改寫成一到兩則吸睛的 Twitter 貼文：
- 每則不超過 280 字元
- 使用台灣用語，語氣口語親切
- 加入 2 到 5 個相關 hashtag
- 以提問或亮點開頭吸引注意
- 結尾加上行動呼籲，例如「點我看更多喔」

摘要：
%s

原文連結：%s`

	promptSlack = `請將以下摘要改寫成適合在 Slack 頻道分享的貼文：
- 以條列式整理重點，簡潔有力
- 使用台灣用語
- 適度加入 emoji（🔥、👉、💡 等）增加親切感
- 結尾附上原文連結並鼓勵點擊

摘要：
%s

原文連結：%s`
)

// Draft rewrites a stored summary as a tweet or Slack post.
func (c *Client) Draft(ctx context.Context, action domain.PostbackAction, text, url string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", &failure.ParseError{URL: url, Reason: "no text to draft from"}
	}

	var template string
	switch action {
	case domain.ActionSlack:
		template = promptSlack
	default:
		template = promptTweet
	}

	model := c.genai.GenerativeModel(c.cfg.SummaryModel)
	model.SetTemperature(draftTemperature)
	model.SetMaxOutputTokens(c.cfg.MaxOutputTokens)

	prompt := fmt.Sprintf(template, text, url)

	var resp *genai.GenerateContentResponse
	err := c.invoke(ctx, keySummarize, func(ctx context.Context) error {
		r, genErr := model.GenerateContent(ctx, genai.Text(prompt))
		if genErr != nil {
			return genErr
		}
		resp = r
		return nil
	})
	if err != nil {
		return "", err
	}

	draft := answerFrom(resp).Text
	if draft == "" {
		return "", &failure.ParseError{URL: url, Reason: "empty draft response"}
	}
	return draft, nil
}
