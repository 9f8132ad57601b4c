package history

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle of a processed entry. Pending is the only
// initial state; every other status is terminal and never transitions again.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	StatusDupe     Status = "dupe"
	StatusOptPick  Status = "optpick"
	StatusIgnored  Status = "ignored"
	StatusError    Status = "error"
)

var allStatuses = []Status{
	StatusPending,
	StatusAccepted,
	StatusRejected,
	StatusDupe,
	StatusOptPick,
	StatusIgnored,
	StatusError,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns every known status in declaration order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts user input to a Status.
func ParseStatus(value string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := statusSet[status]; !ok {
		return "", fmt.Errorf("unknown status %q", value)
	}
	return status, nil
}

// IsTerminal reports whether the status admits no further transition.
func (s Status) IsTerminal() bool {
	return s != StatusPending
}

// Entry represents one feed or listing entry persisted in SQLite.
type Entry struct {
	ID           int64
	Source       string
	Site         string
	Title        string
	Subtitle     string
	Category     string
	Tags         string
	Size         int64
	InfoLink     string
	DownloadLink string
	Status       Status
	Reason       string
	Agent        string
	Tag          string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Detail holds enrichment data fetched from a detail page and the metadata
// lookup service, keyed one-to-one to an entry.
type Detail struct {
	EntryID      int64
	IMDbID       string
	IMDbRating   float64
	DoubanID     string
	DoubanRating float64
	Year         string
	Country      string
	ExtTitle     string
	FetchedAt    time.Time
}

// Download records one dispatch to a download agent, including the parsed
// structural fields the optimal-pick resolver compares against later
// arrivals.
type Download struct {
	ID           int64
	EntryID      int64
	Agent        string
	MediaTitle   string
	Season       string
	Resolution   string
	ReleaseGroup string
	MediaSource  string
	Size         int64
	InfoLink     string
	Paused       bool
	AddedAt      time.Time
}

// CatalogItem is one row of the long-lived catalog of listing entries,
// upserted on (site, info link).
type CatalogItem struct {
	ID           int64
	Site         string
	Title        string
	Subtitle     string
	InfoLink     string
	DownloadLink string
	Size         int64
	Seeders      int
	Leechers     int
	IMDbRating   float64
	DoubanRating float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PassSummary aggregates the outcome of one orchestration pass over a source.
type PassSummary struct {
	Source   string
	Fetched  int
	Accepted int
	Rejected int
	Skipped  int
	Errors   int
}
