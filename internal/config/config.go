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
)

//go:embed sample_config.toml
var sampleConfig string

// Region is the geographic bounding box for catalog queries, expressed as
// four ordered coordinates.
type Region struct {
	South float64 `toml:"south"`
	West  float64 `toml:"west"`
	North float64 `toml:"north"`
	East  float64 `toml:"east"`
}

// Query constrains what the collector asks the catalog for.
type Query struct {
	Taxon         string `toml:"taxon"`
	MaxRecordings int    `toml:"max_recordings"`
}

// Paths contains directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
}

// Download contains worker pool and retry settings for audio fetches.
type Download struct {
	Concurrency           int `toml:"concurrency"`
	RetryAttempts         int `toml:"retry_attempts"`
	BackoffBaseMS         int `toml:"backoff_base_ms"`
	RequestTimeoutSeconds int `toml:"request_timeout_seconds"`
}

// Catalog contains configuration for the Xeno-canto recordings API.
type Catalog struct {
	BaseURL           string `toml:"base_url"`
	APIKey            string `toml:"api_key"`
	UserAgent         string `toml:"user_agent"`
	PageRetryAttempts int    `toml:"page_retry_attempts"`
	PagePauseMS       int    `toml:"page_pause_ms"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for warbler.
//
// Sections by subsystem:
//   - Region: geographic bounding box for the catalog query
//   - Query: taxon filter and total recording cap
//   - Paths: output root and log directory
//   - Download: concurrency limit and per-item retry policy
//   - Catalog: Xeno-canto API endpoint, key, and paging retry policy
//   - Logging: log format and level
type Config struct {
	Region   Region   `toml:"region"`
	Query    Query    `toml:"query"`
	Paths    Paths    `toml:"paths"`
	Download Download `toml:"download"`
	Catalog  Catalog  `toml:"catalog"`
	Logging  Logging  `toml:"logging"`
}

// APIKeyEnvVar is consulted when catalog.api_key is not set in the config file.
const APIKeyEnvVar = "XENO_CANTO_API_KEY"

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/warbler/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized. The boolean reports whether a
// config file was found at the resolved path.
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

	projectPath, err := filepath.Abs("warbler.toml")
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

// RawDir returns the directory holding raw downloads, one file per recording,
// plus the aggregated metadata snapshot.
func (c *Config) RawDir() string {
	return filepath.Join(c.Paths.OutputDir, "raw")
}

// CorpusDir returns the species-organized corpus directory.
func (c *Config) CorpusDir() string {
	return filepath.Join(c.Paths.OutputDir, "corpus")
}

// LedgerPath returns the location of the durable acquisition ledger.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.OutputDir, "ledger.db")
}

// SnapshotPath returns the location of the aggregated metadata file.
func (c *Config) SnapshotPath() string {
	return filepath.Join(c.RawDir(), "metadata.json")
}

// LockPath returns the lock file guarding the output root against concurrent runs.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.OutputDir, "warbler.lock")
}

// RequestTimeout returns the per-request HTTP timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Download.RequestTimeoutSeconds) * time.Second
}

// BackoffBase returns the base interval for exponential retry backoff.
func (c *Config) BackoffBase() time.Duration {
	return time.Duration(c.Download.BackoffBaseMS) * time.Millisecond
}

// PagePause returns the courtesy pause between catalog page fetches.
func (c *Config) PagePause() time.Duration {
	return time.Duration(c.Catalog.PagePauseMS) * time.Millisecond
}

// EnsureDirectories creates the directories required for a collection run.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.RawDir(), c.CorpusDir(), c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
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

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
