package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookChannel posts a summary as JSON to a chat webhook. Slack and Teams
// both accept the simple text-card shape built by the payload func.
type WebhookChannel struct {
	name    string
	url     string
	client  *http.Client
	payload func(Summary) any
}

// NewSlackChannel builds a channel for a Slack incoming webhook.
func NewSlackChannel(url string) *WebhookChannel {
	return &WebhookChannel{
		name:   "slack",
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		payload: func(s Summary) any {
			return map[string]string{
				"text": fmt.Sprintf("Bulk %s finished: %d/%d succeeded, %d failed (%s)",
					s.OperationKind, s.Successful, s.Total, s.Failed, s.Duration.Round(time.Millisecond)),
			}
		},
	}
}

// NewTeamsChannel builds a channel for a Microsoft Teams incoming webhook.
func NewTeamsChannel(url string) *WebhookChannel {
	return &WebhookChannel{
		name:   "teams",
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		payload: func(s Summary) any {
			return map[string]any{
				"@type":      "MessageCard",
				"@context":   "http://schema.org/extensions",
				"summary":    "Bulk operation summary",
				"themeColor": "2E7D32",
				"title":      fmt.Sprintf("Bulk %s completed", s.OperationKind),
				"text": fmt.Sprintf("Total %d, successful %d, failed %d, duration %s",
					s.Total, s.Successful, s.Failed, s.Duration.Round(time.Millisecond)),
			}
		},
	}
}

func (c *WebhookChannel) Name() string { return c.name }

func (c *WebhookChannel) Send(ctx context.Context, summary Summary) error {
	body, err := json.Marshal(c.payload(summary))
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", c.name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", c.name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post to %s webhook: %w", c.name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s webhook returned status %d", c.name, resp.StatusCode)
	}
	return nil
}
