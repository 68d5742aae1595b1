package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	completionModel      = "gpt-4o-mini"
)

// OpenAIClient calls the chat-completions API. It is the primary answer
// strategy; any failure here routes the query to the keyword fallback.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewOpenAIClient creates a completion client. The 30 second timeout bounds
// the external call; a timeout is treated like any other model error.
func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{
		apiKey:  apiKey,
		baseURL: defaultOpenAIBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete issues a single completion request and returns the model's text
// verbatim. Rate limits and server errors are retried with backoff; other
// failures return immediately.
func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt, userQuery string) (string, error) {
	return WithRetry(ctx, DefaultCompletionRetryConfig, func(ctx context.Context) (string, error) {
		return c.complete(ctx, systemPrompt, userQuery)
	})
}

func (c *OpenAIClient) complete(ctx context.Context, systemPrompt, userQuery string) (string, error) {
	if c.apiKey == "" {
		return "", &AssistantError{
			Code:     ErrNotConfigured,
			Message:  "OpenAI API key not configured",
			Strategy: "openai",
		}
	}

	payload, err := json.Marshal(chatCompletionRequest{
		Model: completionModel,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userQuery},
		},
		Temperature: 0.7,
		MaxTokens:   500,
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &AssistantError{
			Code:      ErrModelTimeout,
			Message:   "completion request failed",
			Strategy:  "openai",
			Retryable: true,
			Cause:     err,
		}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", &AssistantError{
			Code:      ErrModelRateLimited,
			Message:   "completion API rate limited",
			Strategy:  "openai",
			Retryable: true,
		}
	case resp.StatusCode >= 500:
		return "", &AssistantError{
			Code:      ErrModelUnavailable,
			Message:   fmt.Sprintf("completion API returned status %d", resp.StatusCode),
			Strategy:  "openai",
			Retryable: true,
		}
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &AssistantError{
			Code:     ErrModelBadResponse,
			Message:  fmt.Sprintf("completion API returned status %d: %s", resp.StatusCode, string(body)),
			Strategy: "openai",
		}
	}

	var result chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &AssistantError{
			Code:     ErrModelBadResponse,
			Message:  "failed to decode completion response",
			Strategy: "openai",
			Cause:    err,
		}
	}
	if result.Error != nil {
		return "", &AssistantError{
			Code:     ErrModelBadResponse,
			Message:  result.Error.Message,
			Strategy: "openai",
		}
	}
	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return "", &AssistantError{
			Code:     ErrModelBadResponse,
			Message:  "completion response contained no text",
			Strategy: "openai",
		}
	}

	return result.Choices[0].Message.Content, nil
}
