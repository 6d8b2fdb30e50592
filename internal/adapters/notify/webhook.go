// Package notify delivers alerts to the outside world.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"royal-collector/internal/adapters/persistence/models"
)

// DefaultWebhookURL is the LINE Notify endpoint; any service accepting the same
// form-encoded "message" field with a bearer token works.
const DefaultWebhookURL = "https://notify-api.line.me/api/notify"

// WebhookSink posts alerts as form-encoded messages with a bearer token
type WebhookSink struct {
	url    string
	token  string
	client *http.Client
}

// NewWebhookSink creates a webhook sink. An empty URL falls back to DefaultWebhookURL.
func NewWebhookSink(endpoint, token string, timeout time.Duration) *WebhookSink {
	if endpoint == "" {
		endpoint = DefaultWebhookURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookSink{
		url:    endpoint,
		token:  token,
		client: &http.Client{Timeout: timeout},
	}
}

// Name identifies the sink in logs
func (s *WebhookSink) Name() string {
	return "webhook"
}

// Deliver sends one alert
func (s *WebhookSink) Deliver(ctx context.Context, alert *models.Alert) error {
	data := url.Values{}
	data.Set("message", formatMessage(alert))
	data.Set("to", alert.TargetEmail)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewBufferString(data.Encode()))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded with status %d", resp.StatusCode)
	}
	return nil
}

// formatMessage renders an alert the way chat notifications show it
func formatMessage(alert *models.Alert) string {
	icon := "ℹ️"
	switch alert.Severity {
	case "WARNING":
		icon = "⚠️"
	case "CRITICAL":
		icon = "🚨"
	}

	msg := fmt.Sprintf("\n%s %s\n\n%s", icon, alert.Title, alert.Message)
	if alert.RelatedCaseID != nil {
		msg += fmt.Sprintf("\n\n📋 Case: #%d", *alert.RelatedCaseID)
	}
	return msg
}
