package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
)

// CompleteWithDocument sends a chat completion whose user turn carries the
// raw document as a base64 data URL file part, for multimodal models that
// read PDF and Word files directly.
func (c *OpenAICompatibleClient) CompleteWithDocument(
	ctx context.Context,
	cfg ChatConfig,
	systemPrompt, userPrompt string,
	fileName string,
	fileBytes []byte,
) (string, error) {
	if len(fileBytes) == 0 {
		return "", fmt.Errorf("document payload is empty")
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeForFile(fileName), base64.StdEncoding.EncodeToString(fileBytes))

	reqBody := map[string]interface{}{
		"model": cfg.Model,
		"messages": []map[string]interface{}{
			{"role": "system", "content": systemPrompt},
			{
				"role": "user",
				"content": []map[string]interface{}{
					{
						"type": "file",
						"file": map[string]string{
							"filename":  fileName,
							"file_data": dataURL,
						},
					},
					{"type": "text", "text": userPrompt},
				},
			},
		},
		"stream": false,
	}
	return c.post(ctx, cfg, reqBody)
}

func mimeForFile(fileName string) string {
	name := strings.ToLower(fileName)
	switch {
	case strings.HasSuffix(name, ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(name, ".docx"):
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case strings.HasSuffix(name, ".doc"):
		return "application/msword"
	default:
		return "application/octet-stream"
	}
}
