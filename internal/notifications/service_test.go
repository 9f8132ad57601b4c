package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"torrel/internal/config"
	"torrel/internal/history"
	"torrel/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	err := svc.NotifyPassCompleted(context.Background(), &history.PassSummary{Source: "tracker"})
	if err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPassSummary(t *testing.T) {
	var gotTitle, gotTags, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTitle = r.Header.Get("Title")
		gotTags = r.Header.Get("Tags")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Passes = true
	svc := notifications.NewService(&cfg)

	err := svc.NotifyPassCompleted(context.Background(), &history.PassSummary{
		Source: "tracker", Fetched: 3, Accepted: 1, Rejected: 1, Skipped: 1,
	})
	if err != nil {
		t.Fatalf("NotifyPassCompleted: %v", err)
	}
	if gotTitle != "Torrel - Pass Complete" {
		t.Errorf("title = %q", gotTitle)
	}
	if gotTags != "torrel,pass,completed" {
		t.Errorf("tags = %q", gotTags)
	}
	want := "tracker: 3 fetched, 1 accepted, 1 rejected, 1 skipped, 0 errors"
	if gotBody != want {
		t.Errorf("body = %q, want %q", gotBody, want)
	}
}

func TestNtfyServiceGatesEvents(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Passes = false
	cfg.Notifications.Downloads = false
	svc := notifications.NewService(&cfg)

	if err := svc.NotifyPassCompleted(context.Background(), &history.PassSummary{Source: "x"}); err != nil {
		t.Fatalf("NotifyPassCompleted: %v", err)
	}
	if err := svc.NotifyDownloadAdded(context.Background(), "x", "Some Release"); err != nil {
		t.Fatalf("NotifyDownloadAdded: %v", err)
	}
	if calls != 0 {
		t.Errorf("gated events reached the server %d times", calls)
	}
	// The test notification is never gated.
	if err := svc.TestNotification(context.Background()); err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestNtfyServiceSurfacesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Errors = true
	svc := notifications.NewService(&cfg)

	if err := svc.NotifyPassFailed(context.Background(), "tracker", context.DeadlineExceeded); err == nil {
		t.Fatal("expected error from ntfy failure")
	}
}
