package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// SlackNotifier posts messages through chat.postMessage.
type SlackNotifier struct {
	token   string
	channel string
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// NewSlackNotifier constructs a Slack notifier.
func NewSlackNotifier(token, channel, baseURL string, timeout time.Duration, logger zerolog.Logger) *SlackNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://slack.com/api"
	}

	return &SlackNotifier{
		token:   token,
		channel: channel,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "alert_slack").Logger(),
	}
}

// Notify sends the notification text to the configured channel.
func (n *SlackNotifier) Notify(ctx context.Context, note Notification) error {
	body, err := json.Marshal(map[string]string{
		"channel": n.channel,
		"text":    note.Text,
	})
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/chat.postMessage", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+n.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send slack request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("slack returned status %d", resp.StatusCode)
	}

	var result struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil && !result.OK {
		return fmt.Errorf("slack returned ok=false: %s", result.Error)
	}

	n.logger.Info().Str("netuid", note.NetUID).
		Str("kind", note.Kind).
		Str("channel", n.channel).
		Msg("notification sent (slack)")
	return nil
}

var _ Notifier = (*SlackNotifier)(nil)
