// Package slack posts escalated alerts to a Slack incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/beacon/internal/alerting"
	"github.com/linnemanlabs/beacon/internal/locate"
)

const httpTimeout = 10 * time.Second

// Notifier sends escalated alerts to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
	logger     log.Logger
}

// New creates a Slack notifier. If webhookURL is empty, Send is a no-op.
func New(webhookURL string, logger log.Logger) *Notifier {
	if logger == nil {
		logger = log.Nop()
	}
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
		logger:     logger,
	}
}

// Name identifies the channel in notification metrics and logs.
func (n *Notifier) Name() string { return "slack" }

// Send posts an escalated alert to the configured webhook. With no webhook
// URL configured it returns nil immediately.
func (n *Notifier) Send(ctx context.Context, a *alerting.Alert, loc locate.Location) error {
	if n.webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(buildMessage(a, loc))
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}

	n.logger.Info(ctx, "slack notification sent", "alert_id", a.ID)
	return nil
}

func buildMessage(a *alerting.Alert, loc locate.Location) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock(a),
			{"type": "divider"},
			fieldsBlock(a, loc),
			{"type": "divider"},
			contextBlock(a),
		},
	}
}

func headerBlock(a *alerting.Alert) map[string]any {
	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": fmt.Sprintf("\U0001f6a8 Emergency Alert: %s", a.Source),
		},
	}
}

func fieldsBlock(a *alerting.Alert, loc locate.Location) map[string]any {
	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Source:* %s", a.Source),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Confidence:* %.1f%%", a.Confidence*100),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Status:* %s", a.Status),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Location:* %s", loc.Address),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Coordinates:* %s, %s", loc.Latitude, loc.Longitude),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Details:* %s", a.Message),
		},
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func contextBlock(a *alerting.Alert) map[string]any {
	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("beacon • alert %s • %s", a.ID, a.CreatedAt.UTC().Format("2006-01-02 15:04 UTC")),
		},
	}

	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}
