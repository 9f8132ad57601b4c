package rules

import (
	"fmt"
	"regexp"
)

// Rejection reason codes. Each names the first failing predicate of the last
// rule evaluated; ReasonAccept signals a match.
const (
	ReasonAccept           = "DL"
	ReasonTitleRegex       = "TITLE_REGEX"
	ReasonTitleNotRegex    = "TITLE_NOT_REGEX"
	ReasonSubtitleRegex    = "SUBTITLE_REGEX"
	ReasonSubtitleNotRegex = "SUBTITLE_NOT_REGEX"
	ReasonNoHR             = "NO_HR"
	ReasonSizeMin          = "SIZE_MIN"
	ReasonSizeMax          = "SIZE_MAX"
	ReasonTagsRegex        = "RSS_TAG_REGEX"
	ReasonTagsNotRegex     = "RSS_TAG_NOT_REGEX"
	ReasonCatRegex         = "RSS_CAT_REGEX"
	ReasonCatNotRegex      = "RSS_CAT_NOT_REGEX"
	ReasonRateMin          = "RATE_MIN"
	ReasonRuleError        = "RULE_ERROR"
)

// hrPattern rejects subtitles carrying a trailing hit-and-run code ("h" plus
// a digit).
var hrPattern = regexp.MustCompile(`h\d$`)

// Result reports the outcome of one evaluation pass.
type Result struct {
	Accepted bool
	// Reason is ReasonAccept on a match; otherwise the reason code of the
	// last rule evaluated.
	Reason string
	// Matched is the accepting rule, nil when rejected.
	Matched *Rule
}

// Engine evaluates an ordered rule list against entries.
type Engine struct {
	rules []Rule
}

// NewEngine builds an engine over the given ordered rule list.
func NewEngine(ruleList []Rule) *Engine {
	return &Engine{rules: ruleList}
}

// Evaluate tries each rule in list order. The first rule whose present
// predicates all pass accepts the entry; that rule's overrides become active
// downstream. When a rule fails, the name of its first failing predicate is
// retained as the candidate reason and evaluation continues, so a rejection
// reports the reason of the last rule tried. A predicate fault (bad regex)
// yields ReasonRuleError for that rule without aborting the loop.
func (e *Engine) Evaluate(in Input) Result {
	reason := ReasonAccept
	for i := range e.rules {
		rule := &e.rules[i]
		r, err := matchRule(rule, in)
		if err != nil {
			reason = ReasonRuleError
			continue
		}
		if r == ReasonAccept {
			return Result{Accepted: true, Reason: ReasonAccept, Matched: rule}
		}
		reason = r
	}
	return Result{Accepted: len(e.rules) == 0, Reason: reason, Matched: nil}
}

// CheckRatings applies the post-enrichment second pass for the matched rule.
// When the rule carries a rate_min, the entry is rejected if both rating
// values fall below the threshold; entries lacking both ratings score zero
// and are therefore treated as below threshold.
func (e *Engine) CheckRatings(matched *Rule, ratings Ratings) Result {
	if matched == nil || matched.RateMin == nil {
		return Result{Accepted: true, Reason: ReasonAccept, Matched: matched}
	}
	min := *matched.RateMin
	if ratings.IMDb < min && ratings.Douban < min {
		return Result{Accepted: false, Reason: ReasonRateMin, Matched: matched}
	}
	return Result{Accepted: true, Reason: ReasonAccept, Matched: matched}
}

func matchRule(rule *Rule, in Input) (string, error) {
	if rule.TitleRegex != "" {
		ok, err := matches(rule.TitleRegex, in.Title)
		if err != nil {
			return "", err
		}
		if !ok {
			return ReasonTitleRegex, nil
		}
	}
	if rule.TitleNotRegex != "" {
		ok, err := matches(rule.TitleNotRegex, in.Title)
		if err != nil {
			return "", err
		}
		if ok {
			return ReasonTitleNotRegex, nil
		}
	}
	if rule.SubtitleRegex != "" {
		ok, err := matches(rule.SubtitleRegex, in.Subtitle)
		if err != nil {
			return "", err
		}
		if !ok {
			return ReasonSubtitleRegex, nil
		}
	}
	if rule.SubtitleNotRegex != "" {
		ok, err := matches(rule.SubtitleNotRegex, in.Subtitle)
		if err != nil {
			return "", err
		}
		if ok {
			return ReasonSubtitleNotRegex, nil
		}
	}
	if rule.NoHR && hrPattern.MatchString(in.Subtitle) {
		return ReasonNoHR, nil
	}
	if rule.SizeGBMin != nil || rule.SizeGBMax != nil {
		sizeGB := float64(in.Size) / 1e9
		if rule.SizeGBMin != nil && sizeGB < *rule.SizeGBMin {
			return ReasonSizeMin, nil
		}
		if rule.SizeGBMax != nil && sizeGB > *rule.SizeGBMax {
			return ReasonSizeMax, nil
		}
	}
	if rule.RSSTagsRegex != "" {
		ok, err := matches(rule.RSSTagsRegex, in.Tags)
		if err != nil {
			return "", err
		}
		if !ok {
			return ReasonTagsRegex, nil
		}
	}
	if rule.RSSTagsNotRegex != "" {
		ok, err := matches(rule.RSSTagsNotRegex, in.Tags)
		if err != nil {
			return "", err
		}
		if ok {
			return ReasonTagsNotRegex, nil
		}
	}
	if rule.RSSCatRegex != "" {
		ok, err := matches(rule.RSSCatRegex, in.Category)
		if err != nil {
			return "", err
		}
		if !ok {
			return ReasonCatRegex, nil
		}
	}
	if rule.RSSCatNotRegex != "" {
		ok, err := matches(rule.RSSCatNotRegex, in.Category)
		if err != nil {
			return "", err
		}
		if ok {
			return ReasonCatNotRegex, nil
		}
	}
	return ReasonAccept, nil
}

func matches(pattern, value string) (bool, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return false, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}
	return re.MatchString(value), nil
}
