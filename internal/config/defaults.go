package config

const (
	defaultOutputDir             = "~/.local/share/warbler/output"
	defaultLogDir                = "~/.local/share/warbler/logs"
	defaultMaxRecordings         = 100
	defaultConcurrency           = 4
	defaultRetryAttempts         = 5
	defaultBackoffBaseMS         = 1000
	defaultRequestTimeoutSeconds = 120
	defaultCatalogBaseURL        = "https://xeno-canto.org/api/3/recordings"
	defaultUserAgent             = "warbler/1.0"
	defaultPageRetryAttempts     = 5
	defaultPagePauseMS           = 500
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults. The region
// bounding box is deliberately left zeroed; a usable box must come from the
// config file or flags.
func Default() Config {
	return Config{
		Query: Query{
			MaxRecordings: defaultMaxRecordings,
		},
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Download: Download{
			Concurrency:           defaultConcurrency,
			RetryAttempts:         defaultRetryAttempts,
			BackoffBaseMS:         defaultBackoffBaseMS,
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
		},
		Catalog: Catalog{
			BaseURL:           defaultCatalogBaseURL,
			UserAgent:         defaultUserAgent,
			PageRetryAttempts: defaultPageRetryAttempts,
			PagePauseMS:       defaultPagePauseMS,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
