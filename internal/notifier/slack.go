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
	"strings"
	"time"

	"github.com/amishk599/cvvin/internal/model"
)

var _ model.Notifier = (*SlackNotifier)(nil)

// SlackNotifier shares analysis results to a Slack channel via an Incoming
// Webhook. It makes one attempt per call; wrap it in retry.RetryNotifier for
// retries.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewSlackNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Notify posts res as a Block Kit message. A non-200 response is returned as
// *model.HTTPError carrying any Retry-After hint.
func (s *SlackNotifier) Notify(ctx context.Context, res model.MatchResult) error {
	body, err := json.Marshal(buildPayload(res))
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
		return &model.HTTPError{
			StatusCode: resp.StatusCode,
			RetryAfter: retryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("slack: %s", strings.TrimSpace(string(msg))),
		}
	}

	s.logger.Info("slack message sent", "run_id", res.RunID, "score", res.MatchScore)
	return nil
}

func retryAfter(header string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// Block Kit payload types.

type slackPayload struct {
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

// SendTestMessage sends a sample result to verify the integration works.
func SendTestMessage(ctx context.Context, n model.Notifier) error {
	sample := model.MatchResult{
		RunID:         "test-001",
		MatchScore:    67,
		MatchedSkills: []string{"Go", "Docker"},
		MissingSkills: []string{"Kubernetes"},
		Strengths:     []string{"Relevant hands-on experience with Go"},
		Improvements:  []string{"Include containerization skills (Kubernetes)"},
		ComputedAt:    time.Now().UTC(),
	}
	return n.Notify(ctx, sample)
}

func scoreEmoji(score int) string {
	switch {
	case score >= 80:
		return "🟢"
	case score >= 50:
		return "🟡"
	default:
		return "🔴"
	}
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "_none_"
	}
	return strings.Join(items, ", ")
}

func bullets(items []string) string {
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("• ")
		b.WriteString(it)
	}
	return b.String()
}

func buildPayload(res model.MatchResult) slackPayload {
	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: fmt.Sprintf("%s Resume match: %d%%", scoreEmoji(res.MatchScore), res.MatchScore)},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: "*Matched skills:*\n" + listOrNone(res.MatchedSkills)},
				{Type: "mrkdwn", Text: "*Missing skills:*\n" + listOrNone(res.MissingSkills)},
			},
		},
	}

	if len(res.Strengths) > 0 {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: "*Strengths*\n" + bullets(res.Strengths)},
		})
	}
	if len(res.Improvements) > 0 {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: "*Areas for improvement*\n" + bullets(res.Improvements)},
		})
	}

	computed := "just now"
	if !res.ComputedAt.IsZero() {
		computed = res.ComputedAt.Format(time.RFC1123)
	}
	blocks = append(blocks,
		slackBlock{
			Type: "context",
			Elements: []slackText{
				{Type: "mrkdwn", Text: fmt.Sprintf("Run `%s` · %s", res.RunID, computed)},
			},
		},
		slackBlock{Type: "divider"},
	)

	return slackPayload{Blocks: blocks}
}
