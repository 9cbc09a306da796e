package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"review_tracker/internal/domain"
)

// Webhook posts review and error notifications to Slack incoming webhooks.
type Webhook struct {
	hc *http.Client
}

func New() *Webhook {
	return &Webhook{hc: &http.Client{Timeout: 10 * time.Second}}
}

var platformInfo = map[domain.Platform]struct {
	emoji string
	name  string
}{
	domain.PlatformApple:  {"🍎", "App Store"},
	domain.PlatformGoogle: {"🤖", "Google Play"},
}

// PostReview delivers one review as a Block Kit message.
func (w *Webhook) PostReview(ctx context.Context, url string, r domain.Review) error {
	if strings.TrimSpace(url) == "" {
		return &domain.NotificationError{URL: url, Err: fmt.Errorf("empty webhook URL")}
	}
	return w.post(ctx, strings.TrimSpace(url), reviewMessage(r))
}

// PostError delivers a failure report. Callers treat this as best-effort;
// the method itself still reports its own delivery failure.
func (w *Webhook) PostError(ctx context.Context, url string, report domain.ErrorReport) error {
	if strings.TrimSpace(url) == "" {
		return &domain.NotificationError{URL: url, Err: fmt.Errorf("empty webhook URL")}
	}
	return w.post(ctx, strings.TrimSpace(url), errorMessage(report))
}

func (w *Webhook) post(ctx context.Context, url string, msg map[string]any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return &domain.NotificationError{URL: url, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &domain.NotificationError{URL: url, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.hc.Do(req)
	if err != nil {
		return &domain.NotificationError{URL: url, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.NotificationError{URL: url, Err: fmt.Errorf("webhook status %d", resp.StatusCode)}
	}
	return nil
}

func reviewMessage(r domain.Review) map[string]any {
	info := platformInfo[r.Platform]
	stars := strings.Repeat("⭐", r.Rating)

	fields := []map[string]any{
		mrkdwn(fmt.Sprintf("*Rating:*\n%s (%d/5)", stars, r.Rating)),
		mrkdwn("*Author:*\n" + r.Author),
		mrkdwn("*Date:*\n" + displayDate(r.Date)),
	}
	if r.Version != "" {
		fields = append(fields, mrkdwn("*Version:*\n"+r.Version))
	}

	return map[string]any{
		"text": fmt.Sprintf("New %s Review", info.name),
		"blocks": []map[string]any{
			{
				"type": "header",
				"text": map[string]any{
					"type": "plain_text",
					"text": fmt.Sprintf("%s New %s Review", info.emoji, info.name),
				},
			},
			{"type": "section", "fields": fields},
			{
				"type": "section",
				"text": mrkdwn(fmt.Sprintf("*%s*\n\n%s", r.Title, r.Content)),
			},
		},
	}
}

func errorMessage(rep domain.ErrorReport) map[string]any {
	ts := rep.Timestamp
	if ts == "" {
		ts = time.Now().UTC().Format(time.RFC3339)
	}

	body := "*Message:*\n" + rep.Message
	if len(rep.Fields) > 0 {
		var lines []string
		for _, f := range rep.Fields {
			lines = append(lines, fmt.Sprintf("• *%s*: %s", f.Field, f.Message))
		}
		body += "\n*Validation Errors:*\n" + strings.Join(lines, "\n")
	}

	blocks := []map[string]any{
		{
			"type": "header",
			"text": map[string]any{"type": "plain_text", "text": "❌ Review Tracker Error"},
		},
		{
			"type": "section",
			"fields": []map[string]any{
				mrkdwn("*Error Type:*\n" + rep.ErrorType),
				mrkdwn("*Time:*\n" + ts),
			},
		},
		{"type": "section", "text": mrkdwn(body)},
	}
	if rep.Details != "" {
		blocks = append(blocks, map[string]any{
			"type": "section",
			"text": mrkdwn("*Details:*\n```" + rep.Details + "```"),
		})
	}

	return map[string]any{
		"text":   "❌ Review Tracker Error: " + rep.ErrorType,
		"blocks": blocks,
	}
}

func mrkdwn(text string) map[string]any {
	return map[string]any{"type": "mrkdwn", "text": text}
}

// displayDate renders an ISO date in a friendlier form, falling back to the
// raw string when it does not parse.
func displayDate(iso string) string {
	if t, err := time.Parse(time.RFC3339, iso); err == nil {
		return t.Format("2 Jan 2006")
	}
	return iso
}
