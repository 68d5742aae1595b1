// Package messaging is a client for the Green API WhatsApp gateway.
package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.green-api.com"

// Config holds the Green API credentials. Loaded once at process start and
// passed in explicitly; there is no lazily-initialized global.
type Config struct {
	InstanceID string
	Token      string
	BaseURL    string // optional override, used by tests
}

// Client is an HTTP client for the Green API instance endpoints.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a Green API client. Sends are bounded by a 15 second
// timeout; a timeout surfaces as an ordinary send error.
func NewClient(cfg Config) (*Client, error) {
	if cfg.InstanceID == "" || cfg.Token == "" {
		return nil, fmt.Errorf("green api InstanceID and Token are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

// WebhookMessage is the inbound notification envelope.
type WebhookMessage struct {
	Type        string `json:"type"` // "incoming" or "outgoing"
	Timestamp   int64  `json:"timestamp"`
	IDMessage   string `json:"idMessage"`
	TypeMessage string `json:"typeMessage"`
	ChatID      string `json:"chatId"`
	SenderID    string `json:"senderId,omitempty"`
	SenderName  string `json:"senderName,omitempty"`
	TextMessage string `json:"textMessage,omitempty"`
}

// SendMessage sends a text message to a chat and returns the message ID.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"chatId":  chatID,
		"message": text,
	})
	if err != nil {
		return "", fmt.Errorf("marshal send request: %w", err)
	}

	url := fmt.Sprintf("%s/waInstance%s/sendMessage/%s", c.cfg.BaseURL, c.cfg.InstanceID, c.cfg.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("send message failed: status %d, body: %s", resp.StatusCode, string(body))
	}

	var result struct {
		IDMessage string `json:"idMessage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return result.IDMessage, nil
}

// ReceiveNotification polls the gateway for one pending notification.
// Returns nil when the queue is empty. The notification is acknowledged
// (deleted) before it is returned, matching the gateway's consume model.
func (c *Client) ReceiveNotification(ctx context.Context) (*WebhookMessage, error) {
	url := fmt.Sprintf("%s/waInstance%s/receiveNotification/%s", c.cfg.BaseURL, c.cfg.InstanceID, c.cfg.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil // queue empty
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("receive notification failed: status %d, body: %s", resp.StatusCode, string(body))
	}

	var envelope struct {
		ReceiptID int64           `json:"receiptId"`
		Body      *WebhookMessage `json:"body"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if envelope.ReceiptID != 0 {
		if err := c.deleteNotification(ctx, envelope.ReceiptID); err != nil {
			return nil, err
		}
	}
	return envelope.Body, nil
}

func (c *Client) deleteNotification(ctx context.Context, receiptID int64) error {
	url := fmt.Sprintf("%s/waInstance%s/deleteNotification/%s/%d", c.cfg.BaseURL, c.cfg.InstanceID, c.cfg.Token, receiptID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	resp.Body.Close()
	return nil
}

// AccountState reports the gateway instance status.
type AccountState struct {
	StateInstance string `json:"stateInstance"`
}

// GetAccountState fetches the gateway instance status, used by the health
// endpoint to report messaging readiness.
func (c *Client) GetAccountState(ctx context.Context) (*AccountState, error) {
	url := fmt.Sprintf("%s/waInstance%s/getStateInstance/%s", c.cfg.BaseURL, c.cfg.InstanceID, c.cfg.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("get account state failed: status %d, body: %s", resp.StatusCode, string(body))
	}

	var state AccountState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &state, nil
}
