package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ftp_control/config"
	"ftp_control/internal/logger"
)

// Channel delivers the human-readable result of an invocation to whoever
// started it.
type Channel interface {
	Send(ctx context.Context, text string) error
}

// WebhookChannel posts {"text": ...} to a URL.
type WebhookChannel struct {
	url    string
	client *http.Client
}

func NewWebhookChannel(url string, client *http.Client) *WebhookChannel {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &WebhookChannel{url: url, client: client}
}

type webhookPayload struct {
	Text string `json:"text"`
}

func (c *WebhookChannel) Send(ctx context.Context, text string) error {
	body, err := json.Marshal(webhookPayload{Text: text})
	if err != nil {
		return fmt.Errorf("encoding webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}

// LogChannel writes messages to the service log.
type LogChannel struct {
	log *logger.Logger
}

func NewLogChannel(log *logger.Logger) *LogChannel {
	return &LogChannel{log: log}
}

func (c *LogChannel) Send(_ context.Context, text string) error {
	c.log.Service().WithField("channel", "log").Info(text)
	return nil
}

// ConfigChannel picks its destination from the current configuration on
// every send: the webhook when notify_webhook_url is set, the log otherwise.
type ConfigChannel struct {
	cfg    config.Source
	client *http.Client
	log    *LogChannel
}

func NewConfigChannel(cfg config.Source, log *logger.Logger, client *http.Client) *ConfigChannel {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &ConfigChannel{cfg: cfg, client: client, log: NewLogChannel(log)}
}

func (c *ConfigChannel) Send(ctx context.Context, text string) error {
	if url := c.cfg.Current().NotifyWebhookURL; url != "" {
		return NewWebhookChannel(url, c.client).Send(ctx, text)
	}
	return c.log.Send(ctx, text)
}
