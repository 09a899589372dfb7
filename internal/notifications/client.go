// Package notifications publishes run outcomes to an ntfy topic.
package notifications

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const DefaultBaseURL = "https://ntfy.sh"

type Client struct {
	http     *resty.Client
	topic    string
	enabled  bool
	priority string
}

// RunOutcome is what a notification reports about one run.
type RunOutcome struct {
	RunID     string
	Records   int
	RowErrors int
	Updated   int
	Appended  int
	Err       error
}

type NotificationError struct {
	Type       string
	StatusCode int
	Underlying error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification failed [%s]: %v", e.Type, e.Underlying)
}

func (e *NotificationError) Unwrap() error {
	return e.Underlying
}

func NewClient(baseURL, topic string, enabled bool, priority string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(10 * time.Second)

	return &Client{
		http:     client,
		topic:    topic,
		enabled:  enabled,
		priority: priority,
	}
}

func (c *Client) Enabled() bool {
	return c.enabled && c.topic != ""
}

// SendNotification posts one message. It makes a single attempt; callers
// decide whether to try again.
func (c *Client) SendNotification(ctx context.Context, title, message string, tags ...string) error {
	if !c.Enabled() {
		log.Debug().Msg("Notifications disabled, skipping")
		return nil
	}

	req := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "text/plain; charset=utf-8").
		SetBody(message)
	if title != "" {
		req.SetHeader("Title", title)
	}
	if c.priority != "" {
		req.SetHeader("Priority", c.priority)
	}
	if len(tags) > 0 {
		req.SetHeader("Tags", strings.Join(tags, ","))
	}

	log.Debug().
		Str("topic", c.topic).
		Str("title", title).
		Msg("Sending notification")

	resp, err := req.Post("/" + c.topic)
	if err != nil {
		errType := "network"
		if errors.Is(err, context.DeadlineExceeded) {
			errType = "timeout"
		}
		return &NotificationError{Type: errType, Underlying: err}
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		return &NotificationError{
			Type:       categorizeHTTPError(resp.StatusCode()),
			StatusCode: resp.StatusCode(),
			Underlying: fmt.Errorf("HTTP %d: %s", resp.StatusCode(), resp.Status()),
		}
	}

	log.Debug().
		Int("status_code", resp.StatusCode()).
		Msg("Notification sent successfully")
	return nil
}

// NotifyRun reports a run outcome: a summary on success, the error otherwise.
func (c *Client) NotifyRun(ctx context.Context, outcome RunOutcome) error {
	if !c.Enabled() {
		return nil
	}
	if outcome.Err != nil {
		return c.SendNotification(ctx, "fmarket NAV sync failed", formatFailure(outcome), "warning")
	}
	return c.SendNotification(ctx, "fmarket NAV sync", formatSummary(outcome), "chart_with_upwards_trend")
}

func formatSummary(o RunOutcome) string {
	var sb strings.Builder
	if o.Records == 0 {
		sb.WriteString("No data\n")
	} else {
		fmt.Fprintf(&sb, "Scraped %d funds\n", o.Records)
		fmt.Fprintf(&sb, "Saved to Google Sheets! (Updated: %d, Appended: %d)\n", o.Updated, o.Appended)
	}
	if o.RowErrors > 0 {
		fmt.Fprintf(&sb, "Skipped %d unparsable rows\n", o.RowErrors)
	}
	if o.RunID != "" {
		fmt.Fprintf(&sb, "Run %s\n", o.RunID)
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func formatFailure(o RunOutcome) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %v\n", o.Err)
	if o.Updated > 0 || o.Appended > 0 {
		fmt.Fprintf(&sb, "Written before failure (Updated: %d, Appended: %d)\n", o.Updated, o.Appended)
	}
	if o.RunID != "" {
		fmt.Fprintf(&sb, "Run %s\n", o.RunID)
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func categorizeHTTPError(statusCode int) string {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return "auth"
	case statusCode == http.StatusTooManyRequests:
		return "rate_limit"
	case statusCode >= 400 && statusCode < 500:
		return "client"
	case statusCode >= 500:
		return "server"
	default:
		return "unknown"
	}
}
