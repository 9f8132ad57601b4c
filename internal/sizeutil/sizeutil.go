// Package sizeutil converts between byte counts and the human-readable size
// strings used in feed subtitles and agent capacity reports.
package sizeutil

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"
)

const bytesPerGB = 1e9

// sizePattern recognizes annotations like "1.46 GB" or "700MiB".
var sizePattern = regexp.MustCompile(`(?i)^\d+(?:[.,]\d+)?\s*[KMGTP]?i?B$`)

// Parse converts a human-readable size string to bytes. Both SI ("GB") and
// IEC ("GiB") suffixes are accepted.
func Parse(text string) (int64, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, fmt.Errorf("empty size string")
	}
	// Some sites annotate sizes with a comma decimal separator.
	value, err := humanize.ParseBytes(strings.ReplaceAll(trimmed, ",", "."))
	if err != nil {
		return 0, fmt.Errorf("parse size %q: %w", text, err)
	}
	if value > math.MaxInt64 {
		return 0, fmt.Errorf("size %q overflows", text)
	}
	return int64(value), nil
}

// IsSize reports whether text looks like a size annotation.
func IsSize(text string) bool {
	return sizePattern.MatchString(strings.TrimSpace(text))
}

// Format renders bytes using SI units, matching the style sites use in
// release subtitles.
func Format(bytes int64) string {
	if bytes < 0 {
		return "0 B"
	}
	return humanize.Bytes(uint64(bytes))
}

// GB converts bytes to decimal gigabytes.
func GB(bytes int64) float64 {
	return float64(bytes) / bytesPerGB
}

// FromGB converts decimal gigabytes to bytes.
func FromGB(gb float64) int64 {
	if gb <= 0 {
		return 0
	}
	return int64(gb * bytesPerGB)
}
