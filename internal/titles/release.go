package titles

import (
	"fmt"
	"regexp"
	"strings"
)

// ReleaseInfo is the normalized structural description of one release
// variant, extracted from filename-style tokens. The optimal-pick resolver
// compares variants on (MediaTitle, Season, Resolution) identity.
type ReleaseInfo struct {
	MediaTitle   string
	Season       string
	Resolution   string
	ReleaseGroup string
	MediaSource  string
}

var (
	seasonPattern     = regexp.MustCompile(`(?i)\bS(\d{1,2})(?:E\d{1,4}(?:-?E?\d{1,4})?)?\b`)
	seasonWordPattern = regexp.MustCompile(`(?i)\bSeason[ ._]*(\d{1,2})\b`)
	resolutionPattern = regexp.MustCompile(`(?i)\b(\d{3,4}[pi]|4k)\b`)
	groupPattern      = regexp.MustCompile(`-([A-Za-z0-9@]+)$`)
	yearPattern       = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	separatorPattern  = regexp.MustCompile(`[._]+`)
	spacePattern      = regexp.MustCompile(`\s+`)

	remuxPattern  = regexp.MustCompile(`(?i)remux`)
	webdlPattern  = regexp.MustCompile(`(?i)(web-?dl|web-?rip|hdtv|\bweb\b)`)
	encodePattern = regexp.MustCompile(`(?i)(encode|x265|x264)`)
	blurayPattern = regexp.MustCompile(`(?i)\b(blu-?ray|uhd|bdmv|bdrip)\b`)
	dvdPattern    = regexp.MustCompile(`(?i)\b(dvdr|dvdrip|ntsc|dvd|dvdiso)\b`)
	discMuxHint   = regexp.MustCompile(`(?i)(avc.*dts|mpeg.*avc)`)
)

// ParseRelease extracts structured release fields from a filename-style
// title such as "Show.Name.S01E02.2024.1080p.WEB-DL.H264-GROUP".
func ParseRelease(raw string) ReleaseInfo {
	info := ReleaseInfo{MediaSource: MediaSource(raw)}

	text := strings.TrimSpace(raw)
	if text == "" {
		return info
	}

	cut := len(text)

	if loc := seasonPattern.FindStringSubmatchIndex(text); loc != nil {
		info.Season = normalizeSeason(text[loc[2]:loc[3]])
		if loc[0] < cut {
			cut = loc[0]
		}
	} else if loc := seasonWordPattern.FindStringSubmatchIndex(text); loc != nil {
		info.Season = normalizeSeason(text[loc[2]:loc[3]])
		if loc[0] < cut {
			cut = loc[0]
		}
	}

	if loc := resolutionPattern.FindStringIndex(text); loc != nil {
		info.Resolution = normalizeResolution(text[loc[0]:loc[1]])
		if loc[0] < cut {
			cut = loc[0]
		}
	}

	if loc := yearPattern.FindStringIndex(text); loc != nil && loc[0] > 0 && loc[0] < cut {
		cut = loc[0]
	}

	if m := groupPattern.FindStringSubmatch(text); m != nil {
		info.ReleaseGroup = m[1]
	}

	info.MediaTitle = normalizeMediaTitle(text[:cut])
	return info
}

// MediaSource classifies the transport/encode source of a release title.
// Order matters: a remux keeps its disc-source tokens, so remux is checked
// before bluray.
func MediaSource(title string) string {
	switch {
	case remuxPattern.MatchString(title):
		return "remux"
	case webdlPattern.MatchString(title):
		return "webdl"
	case encodePattern.MatchString(title):
		return "encode"
	case blurayPattern.MatchString(title):
		return "bluray"
	case dvdPattern.MatchString(title):
		return "dvd"
	case discMuxHint.MatchString(title):
		return "bluray"
	default:
		return "other"
	}
}

func normalizeSeason(digits string) string {
	var n int
	if _, err := fmt.Sscanf(digits, "%d", &n); err != nil {
		return ""
	}
	return fmt.Sprintf("S%02d", n)
}

func normalizeResolution(value string) string {
	value = strings.ToLower(value)
	if value == "4k" {
		return "2160p"
	}
	return value
}

func normalizeMediaTitle(value string) string {
	value = separatorPattern.ReplaceAllString(value, " ")
	value = spacePattern.ReplaceAllString(value, " ")
	return strings.ToLower(strings.TrimSpace(value))
}
