package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTMDB()
	c.normalizeDownload()
	c.normalizeFetch()
	c.normalizeWorkflow()
	c.normalizeLogging()
	c.normalizeAgents()
	c.normalizeSources()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.RulesDir) == "" {
		c.Paths.RulesDir = defaultRulesDir
	}
	if c.Paths.RulesDir, err = expandPath(c.Paths.RulesDir); err != nil {
		return fmt.Errorf("paths.rules_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTMDB() {
	if c.TMDB.APIKey == "" {
		if value, ok := os.LookupEnv("TMDB_API_KEY"); ok {
			c.TMDB.APIKey = strings.TrimSpace(value)
		}
	}
	c.TMDB.BaseURL = strings.TrimSpace(c.TMDB.BaseURL)
	if c.TMDB.BaseURL == "" {
		c.TMDB.BaseURL = defaultTMDBBaseURL
	}
	c.TMDB.Language = strings.TrimSpace(c.TMDB.Language)
	if c.TMDB.Language == "" {
		c.TMDB.Language = defaultTMDBLanguage
	}
}

func (c *Config) normalizeDownload() {
	if c.Download.DispatchDelay < 0 {
		c.Download.DispatchDelay = defaultDispatchDelay
	}
	if c.Download.RequestTimeout <= 0 {
		c.Download.RequestTimeout = defaultDownloadTimeout
	}
}

func (c *Config) normalizeFetch() {
	if c.Fetch.FeedTimeout <= 0 {
		c.Fetch.FeedTimeout = defaultFeedTimeout
	}
	if c.Fetch.DetailTimeout <= 0 {
		c.Fetch.DetailTimeout = defaultDetailTimeout
	}
	c.Fetch.UserAgent = strings.TrimSpace(c.Fetch.UserAgent)
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.DefaultPollInterval <= 0 {
		c.Workflow.DefaultPollInterval = defaultPollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeAgents() {
	for i := range c.Agents {
		agent := &c.Agents[i]
		agent.Name = strings.TrimSpace(agent.Name)
		agent.URL = strings.TrimRight(strings.TrimSpace(agent.URL), "/")
		if agent.FreeMarginGB <= 0 {
			agent.FreeMarginGB = defaultAgentFreeMarginGB
		}
	}
}

func (c *Config) normalizeSources() {
	for i := range c.Sources {
		source := &c.Sources[i]
		source.Name = strings.TrimSpace(source.Name)
		source.Kind = SourceKind(strings.ToLower(strings.TrimSpace(string(source.Kind))))
		if source.Kind == "" {
			source.Kind = SourceFeed
		}
		source.Action = ActionKind(strings.ToLower(strings.TrimSpace(string(source.Action))))
		if source.Action == "" {
			source.Action = ActionDownload
		}
		source.Site = strings.TrimSpace(source.Site)
		if source.Site == "" {
			source.Site = strings.ToLower(source.Name)
		}
		if source.PollInterval <= 0 {
			source.PollInterval = c.Workflow.DefaultPollInterval
		}
		if source.Agent == "" && len(c.Agents) == 1 {
			source.Agent = c.Agents[0].Name
		}
	}
}
