// Package automation notifies an external workflow engine that a report
// record was created. Delivery is best-effort: the record already exists when
// a notification is sent, so failures are logged and never surfaced.
package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"report-generator/internal/config"
	"report-generator/internal/logger"
	"report-generator/internal/models"
)

// Notifier is the best-effort notification port used after a record is created
type Notifier interface {
	Notify(ctx context.Context, payload models.AutomationPayload) error
}

// Error is a failed webhook delivery
type Error struct {
	RecordID string
	Status   int
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("automation webhook for %s failed: %v", e.RecordID, e.Err)
	}
	return fmt.Sprintf("automation webhook for %s answered %d", e.RecordID, e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

// Disabled is the notifier used when no webhook is configured
type Disabled struct{}

// Notify does nothing
func (Disabled) Notify(context.Context, models.AutomationPayload) error { return nil }

// Webhook posts notifications to a configured URL
type Webhook struct {
	url        string
	httpClient *http.Client
}

// DefaultTimeout applies when a non-positive timeout is configured
const DefaultTimeout = 10 * time.Second

func orDefault(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return DefaultTimeout
	}
	return timeout
}

// NewWebhook creates a webhook notifier
func NewWebhook(url string, timeout time.Duration) *Webhook {
	return &Webhook{
		url:        url,
		httpClient: &http.Client{Timeout: orDefault(timeout)},
	}
}

// New returns the notifier described by cfg
func New(cfg config.AutomationConfig) Notifier {
	if !cfg.Enabled || cfg.WebhookURL == "" {
		return Disabled{}
	}
	return NewWebhook(cfg.WebhookURL, cfg.Timeout)
}

// Notify posts the payload; any non-2xx answer is an *Error
func (w *Webhook) Notify(ctx context.Context, payload models.AutomationPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &Error{RecordID: payload.RecordID, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return &Error{RecordID: payload.RecordID, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return &Error{RecordID: payload.RecordID, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{RecordID: payload.RecordID, Status: resp.StatusCode}
	}

	logger.Info("Automation triggered successfully", "record", payload.RecordID)
	return nil
}

// NotifyBestEffort runs Notify detached from the caller. The returned
// channel is closed once delivery finished or failed; callers may ignore it.
// A non-positive timeout means DefaultTimeout.
func NotifyBestEffort(n Notifier, payload models.AutomationPayload, timeout time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ctx, cancel := context.WithTimeout(context.Background(), orDefault(timeout))
		defer cancel()
		if err := n.Notify(ctx, payload); err != nil {
			logger.Error("Error triggering automation", "error", err)
		}
	}()
	return done
}
