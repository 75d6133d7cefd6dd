package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/amishk599/applytrack/internal/model"
)

// Ensure SlackNotifier implements model.Notifier.
var _ model.Notifier = (*SlackNotifier)(nil)

// SlackNotifier sends application updates to a Slack channel via Incoming Webhooks.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
	gap        time.Duration // pause between consecutive messages
}

// NewSlackNotifier returns a notifier that posts each transition to Slack via webhook.
func NewSlackNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
		gap:        500 * time.Millisecond,
	}
}

// Notify sends each transition as a separate Slack message using Block Kit.
// Returns an error only if ALL messages fail. Individual failures are logged.
// The returned error wraps the last failure so callers can inspect *model.HTTPError.
func (s *SlackNotifier) Notify(ctx context.Context, transitions []model.Transition) error {
	if len(transitions) == 0 {
		return nil
	}

	failures := 0
	var lastErr error
	for i, tr := range transitions {
		if i > 0 && s.gap > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("slack notifications interrupted after %d of %d: %w", i, len(transitions), ctx.Err())
			case <-time.After(s.gap):
			}
		}

		if err := s.sendMessage(ctx, tr); err != nil {
			s.logger.Error("slack notification failed", "company", tr.Application.Company, "role", tr.Application.Role, "error", err)
			failures++
			lastErr = err
		}
	}

	sent := len(transitions) - failures
	if failures == len(transitions) {
		return fmt.Errorf("all %d slack notifications failed: %w", failures, lastErr)
	}
	s.logger.Info("slack notifications complete", "sent", sent, "failed", failures)
	return nil
}

func (s *SlackNotifier) sendMessage(ctx context.Context, tr model.Transition) error {
	body, err := json.Marshal(buildPayload(tr))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		httpErr := &model.HTTPError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("slack: %s", bytes.TrimSpace(msg)),
		}
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			httpErr.RetryAfter = time.Duration(secs) * time.Second
		}
		return httpErr
	}
	s.logger.Info("slack message sent", "company", tr.Application.Company, "role", tr.Application.Role)
	return nil
}

// Block Kit payload types.

type slackPayload struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type   string      `json:"type"`
	Text   *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SendTestMessage sends a dummy transition to verify the integration works.
func SendTestMessage(ctx context.Context, n model.Notifier) error {
	now := time.Now().UTC()
	tr := model.Transition{
		Application: model.Application{
			ID:        "test-001",
			Company:   "ApplyTrack Test",
			Role:      "Integration Check",
			Status:    model.StatusInterviewing,
			Source:    "test",
			Location:  "Everywhere",
			CreatedAt: now,
			UpdatedAt: now,
		},
		From: model.StatusApplied,
	}
	return n.Notify(ctx, []model.Transition{tr})
}

var statusEmoji = map[model.Status]string{
	model.StatusApplied:      "📨",
	model.StatusInterviewing: "📅",
	model.StatusOffer:        "🎉",
	model.StatusRejected:     "📪",
	model.StatusOnHold:       "⏸️",
}

func buildPayload(tr model.Transition) slackPayload {
	app := tr.Application

	previous := "New application"
	if !tr.Created && tr.From != "" {
		previous = string(tr.From)
	}
	location := app.Location
	if location == "" {
		location = "Not specified"
	}
	source := app.Source
	if source == "" {
		source = "manual"
	}

	return slackPayload{Blocks: []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: statusEmoji[app.Status] + " " + app.Company + ": " + app.Role},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: "*Status:*\n" + string(app.Status)},
				{Type: "mrkdwn", Text: "*Previous:*\n" + previous},
			},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: "*Location:*\n" + location},
				{Type: "mrkdwn", Text: "*Source:*\n" + source},
			},
		},
		{Type: "divider"},
	}}
}
