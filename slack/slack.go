package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"nutriplan"
)

// Client posts messages to a Slack incoming webhook.
type Client struct {
	webhookURL string
	httpClient nutriplan.HTTPClient
}

func NewClient(webhookURL string, httpClient nutriplan.HTTPClient) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		webhookURL: webhookURL,
		httpClient: httpClient,
	}
}

func (c *Client) PostMessage(ctx context.Context, channel string, message string) error {
	payload, err := json.Marshal(map[string]any{
		"channel": channel,
		"text":    message,
		"mrkdwn":  true,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to post message: %s", resp.Status)
	}

	return nil
}

// NotifyPlan posts the plan summary produced by FormatPlan.
func NotifyPlan(ctx context.Context, client nutriplan.SlackClient, channel string, result nutriplan.PlanResult) error {
	if err := client.PostMessage(ctx, channel, FormatPlan(result)); err != nil {
		return fmt.Errorf("failed to notify plan %s: %w", result.RunID, err)
	}
	return nil
}
