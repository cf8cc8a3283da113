package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/amishk599/hireflow/internal/model"
)

// Ensure SlackNotifier implements model.Notifier.
var _ model.Notifier = (*SlackNotifier)(nil)

// Slack rejects section text longer than 3000 characters.
const maxSectionText = 2900

// SlackNotifier posts drafts to a Slack channel via Incoming Webhooks so they
// can be reviewed before sending.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	spacing    time.Duration
	logger     *slog.Logger
}

// NewSlackNotifier returns a notifier that posts each draft to Slack via webhook.
func NewSlackNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		spacing:    500 * time.Millisecond,
		logger:     logger,
	}
}

// Notify sends each draft as a separate Slack message using Block Kit.
// Returns an error only if ALL messages fail. Individual failures are logged.
// Failed messages are not resent.
func (s *SlackNotifier) Notify(drafts []model.Draft) error {
	if len(drafts) == 0 {
		return nil
	}

	failures := 0
	for i, d := range drafts {
		if i > 0 && s.spacing > 0 {
			time.Sleep(s.spacing)
		}

		if err := s.sendMessage(d); err != nil {
			s.logger.Error("slack notification failed", "role", d.Posting.Role.String(), "error", err)
			failures++
		}
	}

	sent := len(drafts) - failures
	if failures == len(drafts) {
		return fmt.Errorf("all %d slack notifications failed", failures)
	}
	s.logger.Info("slack notifications complete", "sent", sent, "failed", failures)
	return nil
}

func (s *SlackNotifier) sendMessage(d model.Draft) error {
	body, err := json.Marshal(buildPayload(d))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	resp, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned %d", resp.StatusCode)
	}
	s.logger.Info("slack message sent", "role", d.Posting.Role.String())
	return nil
}

// Block Kit payload types.

type slackPayload struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Fields   []slackText `json:"fields,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SendTestMessage sends a dummy draft to verify the integration works.
func SendTestMessage(n model.Notifier) error {
	posting := model.NewPosting(map[string]any{
		"role":        "Test Notification, Integration Verified",
		"experience":  "n/a",
		"skills":      []any{"Slack"},
		"description": "HireFlow test message",
	})
	return n.Notify([]model.Draft{{
		Posting: posting,
		Links:   []string{"https://example.com/portfolio"},
		Email:   "Subject: HireFlow test\n\nIf you can read this, drafts will arrive here.",
	}})
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}

func buildPayload(d model.Draft) slackPayload {
	p := d.Posting
	skills := strings.Join(p.Skills(), ", ")
	if skills == "" {
		skills = model.Unknown
	}

	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: "✉ " + p.Role.String()},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: "*Experience:*\n" + p.Experience.String()},
				{Type: "mrkdwn", Text: "*Skills:*\n" + skills},
			},
		},
		{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: "```" + clip(d.Email, maxSectionText) + "```"},
		},
	}

	if len(d.Links) > 0 {
		blocks = append(blocks, slackBlock{
			Type:     "context",
			Elements: []slackText{{Type: "mrkdwn", Text: clip(strings.Join(d.Links, "\n"), maxSectionText)}},
		})
	}
	blocks = append(blocks, slackBlock{Type: "divider"})

	return slackPayload{
		Text:   "Draft for " + p.Role.String(),
		Blocks: blocks,
	}
}
