package rules

// Rule is one entry of an ordered filter-rule list. Every predicate key is
// optional; a rule with no predicates always matches.
type Rule struct {
	TitleRegex       string   `toml:"title_regex" json:"title_regex,omitempty"`
	TitleNotRegex    string   `toml:"title_not_regex" json:"title_not_regex,omitempty"`
	SubtitleRegex    string   `toml:"subtitle_regex" json:"subtitle_regex,omitempty"`
	SubtitleNotRegex string   `toml:"subtitle_not_regex" json:"subtitle_not_regex,omitempty"`
	NoHR             bool     `toml:"no_hr" json:"no_hr,omitempty"`
	SizeGBMin        *float64 `toml:"size_gb_min" json:"size_gb_min,omitempty"`
	SizeGBMax        *float64 `toml:"size_gb_max" json:"size_gb_max,omitempty"`
	RSSTagsRegex     string   `toml:"rsstags_regex" json:"rsstags_regex,omitempty"`
	RSSTagsNotRegex  string   `toml:"rsstags_not_regex" json:"rsstags_not_regex,omitempty"`
	RSSCatRegex      string   `toml:"rsscat_regex" json:"rsscat_regex,omitempty"`
	RSSCatNotRegex   string   `toml:"rsscat_not_regex" json:"rsscat_not_regex,omitempty"`
	RateMin          *float64 `toml:"rate_min" json:"rate_min,omitempty"`

	// Overrides activated when this rule matches.
	Tag       string `toml:"tag" json:"tag,omitempty"`
	AgentName string `toml:"qbitname" json:"qbitname,omitempty"`
}

// Input carries the entry fields the first evaluation pass inspects.
type Input struct {
	Title    string
	Subtitle string
	Size     int64
	Tags     string
	Category string
}

// Ratings carries the two independent rating values the post-enrichment
// pass inspects.
type Ratings struct {
	IMDb   float64
	Douban float64
}
