package orchestrator_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"torrel/internal/config"
	"torrel/internal/history"
	"torrel/internal/logging"
	"torrel/internal/orchestrator"
	"torrel/internal/testsupport"
)

type recordingNotifier struct {
	mu        sync.Mutex
	completed []*history.PassSummary
	failed    []string
	downloads []string
}

func (n *recordingNotifier) NotifyPassCompleted(ctx context.Context, summary *history.PassSummary) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, summary)
	return nil
}

func (n *recordingNotifier) NotifyPassFailed(ctx context.Context, source string, err error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, source)
	return nil
}

func (n *recordingNotifier) NotifyDownloadAdded(ctx context.Context, source, title string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.downloads = append(n.downloads, title)
	return nil
}

func (n *recordingNotifier) failedCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.failed)
}

func TestManagerRunOnce(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, feedTemplate, "http://example.org")
	}))
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t,
		testsupport.WithSource(config.Source{
			Name:    "tracker",
			Kind:    config.SourceFeed,
			FeedURL: server.URL,
			Action:  config.ActionCatalog,
			Site:    "tracker",
			Rules:   testsupport.AcceptAllRules(),
		}))
	store := testsupport.MustOpenStore(t, cfg)

	notifier := &recordingNotifier{}
	manager, err := orchestrator.NewManager(cfg, store, notifier, logging.NewNop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	summary, err := manager.RunOnce(context.Background(), "tracker")
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if summary.Fetched != 3 || summary.Accepted != 2 {
		t.Errorf("summary = %+v", summary)
	}

	if _, err := manager.RunOnce(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for unknown source")
	}
}

// A failed pass arms an early retry timer; Stop must settle it so nothing
// touches the store after shutdown.
func TestManagerStopCancelsPendingRetry(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithSource(config.Source{
			Name:         "tracker",
			Kind:         config.SourceFeed,
			FeedURL:      "http://127.0.0.1:1/feed",
			Action:       config.ActionCatalog,
			Site:         "tracker",
			PollInterval: 3600,
			Rules:        testsupport.AcceptAllRules(),
		}))
	cfg.Workflow.ErrorRetryInterval = 3600
	store := testsupport.MustOpenStore(t, cfg)

	notifier := &recordingNotifier{}
	manager, err := orchestrator.NewManager(cfg, store, notifier, logging.NewNop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for notifier.failedCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first pass never reported failure")
		}
		time.Sleep(10 * time.Millisecond)
	}

	done := make(chan struct{})
	go func() {
		manager.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return with a retry pending")
	}
}

func TestManagerFailsOnMissingRuleset(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithSource(config.Source{
			Name:        "tracker",
			Kind:        config.SourceFeed,
			FeedURL:     "http://example.org/feed",
			Action:      config.ActionCatalog,
			OptPickPath: "absent.json",
			Rules:       testsupport.AcceptAllRules(),
		}))
	store := testsupport.MustOpenStore(t, cfg)

	if _, err := orchestrator.NewManager(cfg, store, nil, logging.NewNop()); err == nil {
		t.Fatal("expected startup failure for missing optpick ruleset")
	}
}
