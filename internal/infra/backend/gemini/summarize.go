package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"

	"github.com/vietddude/recap/internal/core/domain"
	"github.com/vietddude/recap/internal/retrieval/failure"
)

// Summaries run cooler than chat so repeated requests for the same
// page stay close to each other.
const summaryTemperature = 0.3

const (
	promptConcise = `請以繁體中文為以下內容寫出重點摘要，控制在 200 字以內。
直接陳述重點，不要加開場白或結語。

標題：%s

%s`

	promptDetailed = `請以繁體中文為以下內容寫出詳細摘要：
- 先用一段話概述主旨
- 再以條列方式整理重要細節
- 保留關鍵數據與人名

標題：%s

%s`

	promptTechnical = `請以繁體中文為以下技術內容寫出摘要：
- 說明解決的問題與採用的方法
- 保留 API 名稱、指令、版本號等技術細節
- 程式碼片段以原文呈現

標題：%s

%s`
)

// Summarize produces a summary of retrieved content in the requested
// mode. Unknown modes fall back to concise.
func (c *Client) Summarize(ctx context.Context, content *domain.Content, mode domain.SummaryMode) (string, error) {
	if content == nil || strings.TrimSpace(content.Markdown) == "" {
		return "", &failure.ParseError{URL: urlOf(content), Reason: "no content to summarize"}
	}

	model := c.genai.GenerativeModel(c.cfg.SummaryModel)
	model.SetTemperature(summaryTemperature)
	model.SetMaxOutputTokens(c.cfg.MaxOutputTokens)

	prompt := fmt.Sprintf(promptFor(mode), content.Title, content.Markdown)

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

	summary := answerFrom(resp).Text
	if summary == "" {
		return "", &failure.ParseError{URL: content.URL, Reason: "empty summary response"}
	}
	return summary, nil
}

func promptFor(mode domain.SummaryMode) string {
	switch mode {
	case domain.SummaryDetailed:
		return promptDetailed
	case domain.SummaryTechnical:
		return promptTechnical
	default:
		return promptConcise
	}
}

func urlOf(content *domain.Content) string {
	if content == nil {
		return ""
	}
	return content.URL
}
