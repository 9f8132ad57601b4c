// Package config loads, normalizes, and validates torrel configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TMDB_API_KEY. The Config type centralizes every knob the daemon and CLI
// need: data and log directories, download agents, and the per-source feed
// and listing definitions with their ordered filter rules.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
