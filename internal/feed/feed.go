// Package feed fetches and normalizes RSS/Atom feeds into pipeline entries.
package feed

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"torrel/internal/services"
)

// Entry is one normalized feed item. DownloadLink carries the primary
// enclosure target; Size its declared length in bytes.
type Entry struct {
	ID           string
	Title        string
	InfoLink     string
	DownloadLink string
	Size         int64
	Categories   []string
	Published    time.Time
}

// Complete reports whether the entry carries every field the pipeline
// requires. Incomplete entries are skipped upstream, not failed.
func (e Entry) Complete() bool {
	return e.ID != "" && e.Title != "" && e.InfoLink != "" && e.DownloadLink != ""
}

// Fetcher retrieves feeds with a bounded request timeout.
type Fetcher struct {
	parser *gofeed.Parser
}

// NewFetcher builds a Fetcher. Timeout bounds the whole fetch-and-parse
// round trip; userAgent is sent on every request.
func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	if userAgent != "" {
		parser.UserAgent = userAgent
	}
	return &Fetcher{parser: parser}
}

// Fetch retrieves a feed and normalizes its items in feed-listing order.
// A fetch or parse failure aborts the caller's pass for this source.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]Entry, error) {
	feed, err := f.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "feed", "fetch", url, err)
	}

	entries := make([]Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		entries = append(entries, normalizeItem(item))
	}
	return entries, nil
}

func normalizeItem(item *gofeed.Item) Entry {
	entry := Entry{
		Title:    strings.TrimSpace(item.Title),
		InfoLink: strings.TrimSpace(item.Link),
	}

	entry.ID = item.GUID
	if entry.ID == "" {
		entry.ID = entry.InfoLink
	}

	// The primary enclosure carries the download target and its length.
	for _, enc := range item.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		entry.DownloadLink = enc.URL
		if enc.Length != "" {
			if size, err := strconv.ParseInt(enc.Length, 10, 64); err == nil && size > 0 {
				entry.Size = size
			}
		}
		break
	}

	entry.Categories = make([]string, len(item.Categories))
	copy(entry.Categories, item.Categories)

	switch {
	case item.PublishedParsed != nil:
		entry.Published = item.PublishedParsed.UTC()
	case item.UpdatedParsed != nil:
		entry.Published = item.UpdatedParsed.UTC()
	default:
		// Unparsable or absent timestamps default to now.
		entry.Published = time.Now().UTC()
	}

	return entry
}

// Category joins the entry's feed categories for rule matching.
func (e Entry) Category() string {
	return strings.Join(e.Categories, " ")
}

// String implements fmt.Stringer for log output.
func (e Entry) String() string {
	return fmt.Sprintf("%s (%s)", e.Title, e.InfoLink)
}
