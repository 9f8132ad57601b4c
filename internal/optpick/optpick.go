// Package optpick resolves competing quality variants of one logical
// release: when several release groups publish the same title, season, and
// resolution over time, only the highest-scoring variant is kept.
package optpick

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"torrel/internal/history"
	"torrel/internal/titles"
)

// Ruleset is the JSON document describing which entries require variant
// resolution and how variants are scored.
type Ruleset struct {
	Rules            []Rule         `json:"rules"`
	GroupScores      map[string]int `json:"group_scores"`
	SourceScores     map[string]int `json:"source_scores"`
	ResolutionScores map[string]int `json:"resolution_scores"`
	GroupList        []string       `json:"group_list"`
}

// Rule marks a class of entries as subject to resolution.
type Rule struct {
	Name     string   `json:"name"`
	Pattern  string   `json:"pattern"`
	Excludes []string `json:"excludes"`
}

type compiledRule struct {
	name     string
	pattern  *regexp.Regexp
	excludes []string
}

// Decision reports the resolver's verdict for one entry.
type Decision struct {
	Download bool
	// Subject is false when no rule matched and the entry bypassed
	// resolution entirely.
	Subject bool
	Reason  string
	// Release holds the parsed structural fields when Subject is true.
	Release titles.ReleaseInfo
}

// DownloadLookup is the slice of the history store the resolver needs.
type DownloadLookup interface {
	LatestDownloadOfRelease(ctx context.Context, mediaTitle, season, resolution string) (*history.Download, error)
}

// Manager evaluates entries against a compiled ruleset. Score-table keys
// and the group allow-list are matched case-insensitively.
type Manager struct {
	rules            []compiledRule
	groups           map[string]struct{}
	groupScores      map[string]int
	sourceScores     map[string]int
	resolutionScores map[string]int
}

// Load reads and compiles a ruleset file. A missing or malformed file is a
// startup error, never a per-entry one.
func Load(path string) (*Manager, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read optpick ruleset %q: %w", path, err)
	}
	var ruleset Ruleset
	if err := json.Unmarshal(data, &ruleset); err != nil {
		return nil, fmt.Errorf("parse optpick ruleset %q: %w", path, err)
	}
	return New(ruleset)
}

// New compiles an in-memory ruleset.
func New(ruleset Ruleset) (*Manager, error) {
	mgr := &Manager{
		rules:            make([]compiledRule, 0, len(ruleset.Rules)),
		groups:           make(map[string]struct{}, len(ruleset.GroupList)),
		groupScores:      lowerKeys(ruleset.GroupScores),
		sourceScores:     lowerKeys(ruleset.SourceScores),
		resolutionScores: lowerKeys(ruleset.ResolutionScores),
	}
	for _, rule := range ruleset.Rules {
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("optpick rule %q: compile pattern: %w", rule.Name, err)
		}
		mgr.rules = append(mgr.rules, compiledRule{
			name:     rule.Name,
			pattern:  re,
			excludes: rule.Excludes,
		})
	}
	for _, group := range ruleset.GroupList {
		mgr.groups[strings.ToLower(group)] = struct{}{}
	}
	return mgr, nil
}

// Score sums the configured group, source, and resolution contributions for
// a release. Unknown values contribute zero.
func (m *Manager) Score(info titles.ReleaseInfo) int {
	return m.groupScores[strings.ToLower(info.ReleaseGroup)] +
		m.sourceScores[strings.ToLower(info.MediaSource)] +
		m.resolutionScores[strings.ToLower(info.Resolution)]
}

func lowerKeys(scores map[string]int) map[string]int {
	lowered := make(map[string]int, len(scores))
	for key, value := range scores {
		lowered[strings.ToLower(key)] = value
	}
	return lowered
}

// ShouldDownload decides whether a title/subtitle pair should proceed to
// dispatch. Entries matching no rule bypass resolution. A later arrival
// replaces the existing download only when its score is greater than or
// equal to the existing one; ties favor the newer arrival.
func (m *Manager) ShouldDownload(ctx context.Context, store DownloadLookup, title, subtitle string) (Decision, error) {
	matchstr := title + ", " + subtitle

	var matched *compiledRule
	for i := range m.rules {
		if m.rules[i].pattern.MatchString(matchstr) {
			matched = &m.rules[i]
			break
		}
	}
	if matched == nil {
		return Decision{Download: true, Subject: false, Reason: "not subject to resolution"}, nil
	}

	for _, exclude := range matched.excludes {
		if exclude != "" && strings.Contains(matchstr, exclude) {
			return Decision{
				Download: false,
				Subject:  true,
				Reason:   fmt.Sprintf("excluded by rule %s (%s)", matched.name, exclude),
			}, nil
		}
	}

	info := titles.ParseRelease(title)
	decision := Decision{Subject: true, Release: info}

	if _, ok := m.groups[strings.ToLower(info.ReleaseGroup)]; !ok {
		decision.Reason = fmt.Sprintf("group %q not in allow-list", info.ReleaseGroup)
		return decision, nil
	}

	existing, err := store.LatestDownloadOfRelease(ctx, info.MediaTitle, info.Season, info.Resolution)
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			decision.Download = true
			decision.Reason = "first of its kind"
			return decision, nil
		}
		return decision, fmt.Errorf("look up existing variant: %w", err)
	}

	newScore := m.Score(info)
	existingScore := m.Score(titles.ReleaseInfo{
		ReleaseGroup: existing.ReleaseGroup,
		MediaSource:  existing.MediaSource,
		Resolution:   existing.Resolution,
	})
	if newScore >= existingScore {
		decision.Download = true
		decision.Reason = fmt.Sprintf("score %d replaces existing %d (%s)", newScore, existingScore, existing.ReleaseGroup)
		return decision, nil
	}
	decision.Reason = fmt.Sprintf("score %d below existing %d (%s)", newScore, existingScore, existing.ReleaseGroup)
	return decision, nil
}
