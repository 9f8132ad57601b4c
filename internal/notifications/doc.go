// Package notifications delivers pass and download events via ntfy.
//
// The service publishes to the topic configured in config.toml and
// degrades to a no-op when no topic is set. Per-event booleans let users
// silence pass summaries while keeping error alerts, or the reverse.
package notifications
