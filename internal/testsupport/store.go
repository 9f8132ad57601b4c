package testsupport

import (
	"context"
	"testing"

	"torrel/internal/config"
	"torrel/internal/history"
)

// MustOpenStore opens a history.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewEntry inserts a pending entry for tests using the provided store.
func NewEntry(t testing.TB, store *history.Store, title, subtitle string) *history.Entry {
	t.Helper()

	entry := &history.Entry{
		Source:   "test",
		Site:     "test",
		Title:    title,
		Subtitle: subtitle,
	}
	inserted, err := store.InsertEntry(context.Background(), entry)
	if err != nil {
		t.Fatalf("store.InsertEntry: %v", err)
	}
	if !inserted {
		t.Fatalf("entry (%q, %q) already exists", title, subtitle)
	}
	return entry
}
