// Package llm talks to an OpenAI-compatible chat-completions endpoint. It
// backs the delegated extraction tier and image transcription; nothing else
// in the pipeline knows the service exists.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"invosheet/internal/config"
)

type Client struct {
	baseURL     string
	apiKey      string
	model       string
	visionModel string
	maxTokens   int

	httpClient *http.Client
	log        *slog.Logger
}

func New(cfg config.Config) (*Client, error) {
	if err := cfg.Require("OPENAI_API_KEY", cfg.OpenAIAPIKey); err != nil {
		return nil, err
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.OpenAIBaseURL, "/"),
		apiKey:      cfg.OpenAIAPIKey,
		model:       cfg.OpenAIModel,
		visionModel: cfg.OpenAIVisionModel,
		maxTokens:   cfg.OpenAIMaxTokens,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.OpenAITimeoutMs) * time.Millisecond,
		},
		log: slog.Default().With("component", "llm"),
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string, or []contentPart for vision
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) chat(ctx context.Context, model string, messages []chatMessage) (string, error) {
	reqID := uuid.NewString()
	payload, err := json.Marshal(chatRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("chat request failed", "requestId", reqID, "model", model, "error", err)
		return "", fmt.Errorf("chat completion: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("chat completion: read response: %w", err)
	}
	c.log.Debug("chat request done",
		"requestId", reqID, "model", model,
		"status", resp.StatusCode, "elapsedMs", time.Since(start).Milliseconds())

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat completion: status %d: %s", resp.StatusCode, snippet(body))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("chat completion: decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("chat completion: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 300 {
		s = s[:300] + "..."
	}
	return s
}
