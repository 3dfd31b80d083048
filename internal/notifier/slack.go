package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jobgram/jobgram/internal/model"
	"github.com/jobgram/jobgram/internal/progress"
)

// Ensure SlackNotifier implements progress.Notifier.
var _ progress.Notifier = (*SlackNotifier)(nil)

// SlackNotifier posts run summaries to a Slack channel via Incoming Webhooks.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSlackNotifier returns a notifier that posts each run summary to Slack.
func NewSlackNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
	}
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

// NotifyRun sends the run summary as one Slack message.
func (s *SlackNotifier) NotifyRun(summary model.RunSummary, success bool) error {
	payload := buildRunPayload(summary, success)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	resp, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := resp.Header.Get("Retry-After")
		secs, _ := strconv.Atoi(retryAfter)
		if secs <= 0 {
			secs = 1
		}
		s.logger.Warn("slack rate limited, retrying", "retry_after_secs", secs)
		time.Sleep(time.Duration(secs) * time.Second)

		resp2, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("post to slack (retry): %w", err)
		}
		defer resp2.Body.Close()

		if resp2.StatusCode != http.StatusOK {
			return fmt.Errorf("slack returned %d on retry", resp2.StatusCode)
		}
		s.logger.Info("slack run summary sent", "run_id", summary.RunID, "retried", true)
		return nil
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned %d", resp.StatusCode)
	}
	s.logger.Info("slack run summary sent", "run_id", summary.RunID)
	return nil
}

func buildRunPayload(summary model.RunSummary, success bool) slackPayload {
	header := "✅ Scrape run complete"
	if !success {
		header = "❌ Scrape run failed"
	}

	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: header},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: fmt.Sprintf("*Channels:*\n%d/%d", summary.ChannelsProcessed, summary.TotalChannels)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Duration:*\n%s", summary.Duration.Round(time.Second))},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Messages:*\n%d", summary.MessagesProcessed)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Jobs extracted:*\n%d", summary.JobsExtracted)},
			},
		},
	}

	if len(summary.Errors) > 0 {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: "```" + progress.RenderSummary(summary, success) + "```"},
		})
	}

	return slackPayload{Blocks: blocks}
}
