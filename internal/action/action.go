// Package action holds the terminal step of a pass: what happens to an
// entry after the filter rules accept it. A download source hands the
// entry to its agent; a catalog source records it for browsing.
package action

import (
	"context"

	"torrel/internal/history"
	"torrel/internal/rules"
)

// Item is one accepted entry plus the per-entry context the dispatcher
// needs. Rule and Detail are nil when no rule matched or no enrichment
// ran. Seeders and Leechers are only populated for scraped listings.
type Item struct {
	Entry    *history.Entry
	Rule     *rules.Rule
	Detail   *history.Detail
	Seeders  int
	Leechers int
}

// Outcome is the terminal status and human-readable reason the dispatcher
// decided for the item.
type Outcome struct {
	Status history.Status
	Reason string
}

// Dispatcher executes the terminal action for accepted entries. A returned
// error means the action failed and the entry should be marked errored.
type Dispatcher interface {
	Dispatch(ctx context.Context, item Item) (Outcome, error)
}
