// Package scrape extracts release listings from site HTML using per-site
// declarative rule files: a row selector plus field selectors with optional
// post-processing (id extraction, rating fractions, seed/leech pairs).
// Missing selectors degrade to empty values, never errors.
package scrape
