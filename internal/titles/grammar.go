package titles

import (
	"regexp"
	"strings"
)

// ParsedTitle is the structured descriptor extracted from a raw feed title.
// Fields default to empty when the corresponding segment is absent.
type ParsedTitle struct {
	Category string
	Title    string
	Subtitle string
	Tags     []string
}

var (
	// sizeAnnotation matches an embedded bracketed size such as "[1.46 GB]".
	// Only the annotation text is removed; the value is discarded.
	sizeAnnotation = regexp.MustCompile(`(?i)\[\s*\d+(?:[.,]\d+)?\s*[bkmgt]b?\s*\]`)
	// bracketGroup matches a balanced, non-nested bracket group.
	bracketGroup = regexp.MustCompile(`\[([^\[\]]*)\]`)
)

// Parse extracts the structured fields from a title of the conventional
// form "[category]Main Title[Subtitle Block]". The subtitle block may embed
// a size annotation, a nested bracketed description, and a trailing
// pipe-delimited tag list. Unparsable input yields an all-empty result
// rather than an error.
func Parse(raw string) ParsedTitle {
	var parsed ParsedTitle
	rest := strings.TrimSpace(raw)
	if rest == "" {
		return parsed
	}

	// Leading bracketed token is the category.
	if strings.HasPrefix(rest, "[") {
		if end := strings.Index(rest, "]"); end > 0 {
			parsed.Category = strings.TrimSpace(rest[1:end])
			rest = rest[end+1:]
		}
	}

	// Main title runs up to the first unmatched opening bracket.
	block := ""
	if open := strings.Index(rest, "["); open >= 0 {
		parsed.Title = strings.TrimSpace(rest[:open])
		block = rest[open:]
	} else {
		parsed.Title = strings.TrimSpace(rest)
		return parsed
	}

	// Unwrap the trailing subtitle block.
	if strings.HasPrefix(block, "[") && strings.HasSuffix(block, "]") {
		block = block[1 : len(block)-1]
	} else {
		block = strings.TrimPrefix(block, "[")
	}

	parsed.Subtitle, parsed.Tags = RefineSubtitle(block)
	return parsed
}

// RefineSubtitle reduces a raw subtitle block to the refined subtitle and
// its pipe-delimited tags. It first strips any embedded size annotation,
// then resolves nested bracket groups: a trailing group containing pipes
// becomes the tag list and the innermost remaining group becomes the
// subtitle. A flat block containing pipes splits on the first pipe. The
// function is idempotent over its own subtitle output.
func RefineSubtitle(block string) (string, []string) {
	content := strings.TrimSpace(sizeAnnotation.ReplaceAllString(block, ""))
	if content == "" {
		return "", nil
	}

	var tags []string
	groups := bracketGroup.FindAllStringSubmatchIndex(content, -1)
	if len(groups) > 0 {
		last := groups[len(groups)-1]
		inner := content[last[2]:last[3]]
		if strings.Contains(inner, "|") && strings.TrimSpace(content[last[1]:]) == "" {
			tags = splitTags(inner)
			content = strings.TrimSpace(content[:last[0]])
			groups = bracketGroup.FindAllStringSubmatchIndex(content, -1)
		}
	}

	subtitle := content
	if len(groups) > 0 {
		// Innermost well-formed group replaces the surrounding text.
		last := groups[len(groups)-1]
		subtitle = strings.TrimSpace(content[last[2]:last[3]])
	}

	// The refined subtitle never keeps a pipe: the first token stays and
	// the rest joins the tag list, ahead of any trailing-group tags.
	if strings.Contains(subtitle, "|") {
		parts := strings.SplitN(subtitle, "|", 2)
		tags = append(splitTags(parts[1]), tags...)
		subtitle = strings.TrimSpace(parts[0])
	}
	return subtitle, tags
}

func splitTags(value string) []string {
	var tags []string
	for _, token := range strings.Split(value, "|") {
		token = strings.TrimSpace(token)
		if token != "" {
			tags = append(tags, token)
		}
	}
	return tags
}
