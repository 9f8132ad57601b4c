// Package history provides the SQLite-backed store shared by every pipeline
// component: processed feed entries with their terminal status, enrichment
// details, dispatched downloads, and the long-lived catalog of listing
// entries.
//
// The entries table enforces UNIQUE(title, subtitle), which closes the
// dedup check-then-insert race between overlapping source passes: a
// conflicting insert is reported as a late-detected duplicate rather than
// creating a second record.
package history
