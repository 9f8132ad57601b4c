package config

const (
	defaultDataDir            = "~/.local/share/torrel"
	defaultLogDir             = "~/.local/share/torrel/logs"
	defaultRulesDir           = "~/.config/torrel/rules"
	defaultTMDBBaseURL        = "https://api.themoviedb.org/3"
	defaultTMDBLanguage       = "en-US"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultDispatchDelay      = 1
	defaultDownloadTimeout    = 30
	defaultFeedTimeout        = 60
	defaultDetailTimeout      = 30
	defaultUserAgent          = "torrel/1.0"
	defaultNotifyTimeout      = 10
	defaultPollInterval       = 300
	defaultErrorRetryInterval = 60
	defaultAgentFreeMarginGB  = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			LogDir:   defaultLogDir,
			RulesDir: defaultRulesDir,
		},
		TMDB: TMDB{
			BaseURL:  defaultTMDBBaseURL,
			Language: defaultTMDBLanguage,
		},
		Download: Download{
			SkipWhenNoSpace: true,
			DispatchDelay:   defaultDispatchDelay,
			RequestTimeout:  defaultDownloadTimeout,
		},
		Fetch: Fetch{
			FeedTimeout:   defaultFeedTimeout,
			DetailTimeout: defaultDetailTimeout,
			UserAgent:     defaultUserAgent,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Passes:         false,
			Downloads:      true,
			Errors:         true,
		},
		Workflow: Workflow{
			DefaultPollInterval: defaultPollInterval,
			ErrorRetryInterval:  defaultErrorRetryInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
