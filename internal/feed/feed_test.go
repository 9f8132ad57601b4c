package feed_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"torrel/internal/feed"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>releases</title>
  <item>
    <guid>id-1</guid>
    <title>[TV]Show Name[Subtitle|tag]</title>
    <link>https://example.org/detail/1</link>
    <enclosure url="https://example.org/download/1.torrent" length="1460000000" type="application/x-bittorrent"/>
    <category>TV</category>
    <pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
  </item>
  <item>
    <title>No Links Here</title>
  </item>
</channel>
</rss>`

func TestFetchNormalizesEntries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer server.Close()

	fetcher := feed.NewFetcher(5*time.Second, "torrel-test")
	entries, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	first := entries[0]
	if first.ID != "id-1" {
		t.Fatalf("unexpected id %q", first.ID)
	}
	if first.Title != "[TV]Show Name[Subtitle|tag]" {
		t.Fatalf("unexpected title %q", first.Title)
	}
	if first.InfoLink != "https://example.org/detail/1" {
		t.Fatalf("unexpected info link %q", first.InfoLink)
	}
	if first.DownloadLink != "https://example.org/download/1.torrent" {
		t.Fatalf("unexpected download link %q", first.DownloadLink)
	}
	if first.Size != 1460000000 {
		t.Fatalf("unexpected size %d", first.Size)
	}
	if first.Category() != "TV" {
		t.Fatalf("unexpected category %q", first.Category())
	}
	wantTime := time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC)
	if !first.Published.Equal(wantTime) {
		t.Fatalf("unexpected published time %v", first.Published)
	}
	if !first.Complete() {
		t.Fatal("expected first entry to be complete")
	}

	second := entries[1]
	if second.Complete() {
		t.Fatalf("entry without links must be incomplete: %+v", second)
	}
	if second.Published.IsZero() {
		t.Fatal("missing pubDate must default to now")
	}
}

func TestFetchSurfacesTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	server.Close()

	fetcher := feed.NewFetcher(time.Second, "")
	if _, err := fetcher.Fetch(context.Background(), server.URL); err == nil {
		t.Fatal("expected error for unreachable feed")
	}
}

func TestFetchHonorsContextCancellation(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer func() {
		close(block)
		server.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	fetcher := feed.NewFetcher(10*time.Second, "")
	if _, err := fetcher.Fetch(ctx, server.URL); err == nil {
		t.Fatal("expected context cancellation error")
	}
}
