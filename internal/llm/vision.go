package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
)

const visionPrompt = "Transcribe all text from this document image. " +
	"Preserve the line structure and keep tabular columns separated by at " +
	"least two spaces. Output the text only."

// ExtractText transcribes a document image via the vision model. The image
// travels inline as a base64 data URL.
func (c *Client) ExtractText(ctx context.Context, image []byte, mimeType string) (string, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))

	content, err := c.chat(ctx, c.visionModel, []chatMessage{
		{Role: "user", Content: []contentPart{
			{Type: "text", Text: visionPrompt},
			{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
		}},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}
