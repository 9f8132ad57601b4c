package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"torrel/internal/config"
	"torrel/internal/history"
)

const userAgent = "torrel/1.0"

// Service defines the notification surface exposed to the orchestrator and
// the CLI. Per-event booleans in the configuration gate each method; a
// gated-off event is a silent success.
type Service interface {
	NotifyPassCompleted(ctx context.Context, summary *history.PassSummary) error
	NotifyPassFailed(ctx context.Context, source string, err error) error
	NotifyDownloadAdded(ctx context.Context, source, title string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		settings: cfg.Notifications,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	settings config.Notifications
	client   *http.Client
}

func (n *ntfyService) NotifyPassCompleted(ctx context.Context, summary *history.PassSummary) error {
	if !n.settings.Passes || summary == nil {
		return nil
	}
	data := payload{
		title: "Torrel - Pass Complete",
		message: fmt.Sprintf("%s: %d fetched, %d accepted, %d rejected, %d skipped, %d errors",
			summary.Source, summary.Fetched, summary.Accepted, summary.Rejected, summary.Skipped, summary.Errors),
		tags: []string{"torrel", "pass", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyPassFailed(ctx context.Context, source string, err error) error {
	if !n.settings.Errors {
		return nil
	}
	message := fmt.Sprintf("Pass failed for %s", strings.TrimSpace(source))
	if err != nil {
		message = fmt.Sprintf("%s: %s", message, strings.TrimSpace(err.Error()))
	}
	data := payload{
		title:    "Torrel - Error",
		message:  message,
		tags:     []string{"torrel", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDownloadAdded(ctx context.Context, source, title string) error {
	if !n.settings.Downloads {
		return nil
	}
	data := payload{
		title:   "Torrel - Download Added",
		message: fmt.Sprintf("%s: %s", strings.TrimSpace(source), strings.TrimSpace(title)),
		tags:    []string{"torrel", "download", "added"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Torrel - Test",
		message:  "Notification system test",
		tags:     []string{"torrel", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyPassCompleted(context.Context, *history.PassSummary) error { return nil }
func (noopService) NotifyPassFailed(context.Context, string, error) error           { return nil }
func (noopService) NotifyDownloadAdded(context.Context, string, string) error       { return nil }
func (noopService) TestNotification(context.Context) error                          { return nil }
