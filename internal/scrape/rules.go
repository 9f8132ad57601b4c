package scrape

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SiteRules is the per-site declarative extraction rule set. Row selects the
// repeated listing element; Fields maps logical field names to extraction
// selectors with optional post-processing.
type SiteRules struct {
	Site   string               `yaml:"site"`
	Row    string               `yaml:"row"`
	Fields map[string]FieldRule `yaml:"fields"`
}

// FieldRule extracts one logical field from a listing row. An empty Attr
// takes the element text; Method names an optional post-processing step.
type FieldRule struct {
	Selector string `yaml:"selector"`
	Attr     string `yaml:"attr"`
	Method   string `yaml:"method"`
}

// Recognized post-processing methods.
const (
	MethodRaw       = "raw"
	MethodIMDbID    = "re_imdb"
	MethodDoubanID  = "re_douban"
	MethodRating    = "re_rating"
	MethodSeedLeech = "re_seedleech"
)

// Recognized field names.
const (
	FieldTitle        = "title"
	FieldSubtitle     = "subtitle"
	FieldInfoLink     = "info_link"
	FieldDownloadLink = "download_link"
	FieldSize         = "size"
	FieldSeedLeech    = "seedleech"
	FieldIMDb         = "imdb"
	FieldDouban       = "douban"
	FieldRating       = "rating"
	FieldDate         = "date"
)

// LoadRules reads a site rule file. A missing or malformed file is a
// configuration error that aborts the source's pass.
func LoadRules(path string) (*SiteRules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read site rules %q: %w", path, err)
	}
	var siteRules SiteRules
	if err := yaml.Unmarshal(data, &siteRules); err != nil {
		return nil, fmt.Errorf("parse site rules %q: %w", path, err)
	}
	if siteRules.Row == "" {
		return nil, fmt.Errorf("site rules %q: row selector must be set", path)
	}
	return &siteRules, nil
}
