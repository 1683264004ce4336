package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// TextGenerator produces natural-language text from a system context and a
// user message. Implementations are treated as opaque and possibly
// unavailable; callers must be prepared to fall back.
type TextGenerator interface {
	Generate(ctx context.Context, systemContext, userMessage string, temperature float64, maxTokens int) (string, error)
}

const defaultBaseURL = "https://openrouter.ai/api/v1"

// Client calls an OpenRouter-compatible chat-completions endpoint.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate sends one chat completion. Transient failures (network errors,
// 429 and 5xx responses) are retried a couple of times with exponential
// backoff before giving up.
func (c *Client) Generate(ctx context.Context, systemContext, userMessage string, temperature float64, maxTokens int) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if systemContext != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemContext})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userMessage})

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("error marshaling request: %w", err)
	}

	var content string
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("error creating request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("error while doing request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			err := fmt.Errorf("unexpected status code: %d - body: %s", resp.StatusCode, data)
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return err
			}
			return backoff.Permanent(err)
		}

		var data chatResponse
		if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
			return backoff.Permanent(fmt.Errorf("error decoding resp.Body: %w", err))
		}
		if len(data.Choices) == 0 {
			return backoff.Permanent(fmt.Errorf("response has no choices"))
		}
		content = data.Choices[0].Message.Content
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return "", err
	}
	return content, nil
}
