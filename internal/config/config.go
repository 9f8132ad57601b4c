package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"torrel/internal/rules"
)

//go:embed sample_config.toml
var sampleConfig string

// SourceKind selects how a source acquires entries.
type SourceKind string

const (
	// SourceFeed polls an RSS or Atom feed.
	SourceFeed SourceKind = "feed"
	// SourceListing scrapes a site listing page.
	SourceListing SourceKind = "listing"
)

// ActionKind selects what happens to an accepted entry.
type ActionKind string

const (
	// ActionDownload dispatches the entry to a download agent.
	ActionDownload ActionKind = "download"
	// ActionCatalog records the entry in the local catalog only.
	ActionCatalog ActionKind = "catalog"
)

// Paths contains directory configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	RulesDir string `toml:"rules_dir"`
}

// TMDB contains configuration for The Movie Database API.
type TMDB struct {
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
	Language string `toml:"language"`
}

// Download contains dispatch behavior shared by download-action sources.
type Download struct {
	SkipWhenNoSpace bool `toml:"skip_when_no_space"`
	DispatchDelay   int  `toml:"dispatch_delay"`
	RequestTimeout  int  `toml:"request_timeout"`
}

// Fetch contains HTTP behavior for feed polls and detail page fetches.
type Fetch struct {
	FeedTimeout   int    `toml:"feed_timeout"`
	DetailTimeout int    `toml:"detail_timeout"`
	UserAgent     string `toml:"user_agent"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Passes         bool   `toml:"passes"`
	Downloads      bool   `toml:"downloads"`
	Errors         bool   `toml:"errors"`
}

// Workflow contains daemon timing configuration.
type Workflow struct {
	DefaultPollInterval int `toml:"default_poll_interval"`
	ErrorRetryInterval  int `toml:"error_retry_interval"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Agent describes one qBittorrent WebUI endpoint.
type Agent struct {
	Name       string `toml:"name"`
	URL        string `toml:"url"`
	Username   string `toml:"username"`
	Password   string `toml:"password"`
	AutoDelete bool   `toml:"auto_delete"`
	// FreeMarginGB is the disk headroom the agent must keep after a
	// dispatched torrent completes.
	FreeMarginGB float64 `toml:"free_margin_gb"`
}

// Source describes one feed or listing to poll, its filter rules, and the
// action taken on accepted entries.
type Source struct {
	Name       string     `toml:"name"`
	Kind       SourceKind `toml:"kind"`
	FeedURL    string     `toml:"feed_url"`
	ListingURL string     `toml:"listing_url"`
	// Site labels catalog rows and selects site-specific detail parsing.
	Site         string       `toml:"site"`
	Action       ActionKind   `toml:"action"`
	Agent        string       `toml:"agent"`
	PollInterval int          `toml:"poll_interval"`
	Tag          string       `toml:"tag"`
	GetDetail    bool         `toml:"get_detail"`
	Cookie       string       `toml:"cookie"`
	OptPickPath  string       `toml:"optpick_rules"`
	SiteRules    string       `toml:"site_rules"`
	Rules        []rules.Rule `toml:"rules"`
}

// Config encapsulates all configuration values for torrel.
//
// Configuration sections by subsystem:
//   - Paths: data, log, and rules directories
//   - TMDB: metadata lookup via The Movie Database
//   - Download: dispatch pacing and free-space policy
//   - Fetch: HTTP timeouts and user agent for polls
//   - Notifications: ntfy push notification settings
//   - Workflow: daemon polling intervals
//   - Logging: log format and level
//   - Agents: qBittorrent WebUI endpoints
//   - Sources: feeds and listings with their ordered filter rules
type Config struct {
	Paths         Paths         `toml:"paths"`
	TMDB          TMDB          `toml:"tmdb"`
	Download      Download      `toml:"download"`
	Fetch         Fetch         `toml:"fetch"`
	Notifications Notifications `toml:"notifications"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
	Agents        []Agent       `toml:"agents"`
	Sources       []Source      `toml:"sources"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/torrel/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("torrel.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.RulesDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the history database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "torrel.db")
}

// AgentByName returns the configured agent with the given name.
func (c *Config) AgentByName(name string) (*Agent, bool) {
	for i := range c.Agents {
		if strings.EqualFold(c.Agents[i].Name, name) {
			return &c.Agents[i], true
		}
	}
	return nil, false
}

// SourceByName returns the configured source with the given name.
func (c *Config) SourceByName(name string) (*Source, bool) {
	for i := range c.Sources {
		if strings.EqualFold(c.Sources[i].Name, name) {
			return &c.Sources[i], true
		}
	}
	return nil, false
}

// FeedTimeout returns the feed and listing fetch timeout as a duration.
func (c *Config) FeedTimeout() time.Duration {
	return time.Duration(c.Fetch.FeedTimeout) * time.Second
}

// DetailTimeout returns the detail-page fetch timeout as a duration.
func (c *Config) DetailTimeout() time.Duration {
	return time.Duration(c.Fetch.DetailTimeout) * time.Second
}

// DispatchDelayDuration returns the pause between agent dispatches.
func (c *Config) DispatchDelayDuration() time.Duration {
	return time.Duration(c.Download.DispatchDelay) * time.Second
}

// AgentTimeout returns the download-agent request timeout as a duration.
func (c *Config) AgentTimeout() time.Duration {
	return time.Duration(c.Download.RequestTimeout) * time.Second
}

// RulePath resolves an optpick or site-rules file reference against the
// rules directory. Absolute paths pass through unchanged.
func (c *Config) RulePath(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Paths.RulesDir, name)
}

// WriteSample writes the annotated sample configuration to path.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
