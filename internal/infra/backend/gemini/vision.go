package gemini

import (
	"context"
	"strings"

	"github.com/google/generative-ai-go/genai"

	"github.com/vietddude/recap/internal/retrieval/failure"
)

const visionPrompt = `請以繁體中文描述這張圖片：
- 圖片的主要內容與場景
- 若含有文字，完整轉錄出來
- 若是圖表，說明其呈現的資訊`

// Describe describes an image. mime is the full content type, e.g.
// "image/jpeg".
func (c *Client) Describe(ctx context.Context, mime string, image []byte) (string, error) {
	if len(image) == 0 {
		return "", &failure.ParseError{Reason: "empty image payload"}
	}

	model := c.genai.GenerativeModel(c.cfg.VisionModel)
	model.SetTemperature(c.cfg.Temperature)
	model.SetMaxOutputTokens(c.cfg.MaxOutputTokens)

	format := strings.TrimPrefix(mime, "image/")

	var resp *genai.GenerateContentResponse
	err := c.invoke(ctx, keyVision, func(ctx context.Context) error {
		r, genErr := model.GenerateContent(ctx,
			genai.ImageData(format, image),
			genai.Text(visionPrompt),
		)
		if genErr != nil {
			return genErr
		}
		resp = r
		return nil
	})
	if err != nil {
		return "", err
	}

	description := answerFrom(resp).Text
	if description == "" {
		return "", &failure.ParseError{Reason: "empty vision response"}
	}
	return description, nil
}
