// Package logging builds the slog loggers used across the daemon and CLI.
// It selects console or JSON output from configuration, tees records into
// the log directory, and supplies shared attribute helpers so source names,
// sites, and run IDs appear under consistent keys.
package logging
