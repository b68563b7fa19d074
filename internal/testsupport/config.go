// Package testsupport provides shared fixtures for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"warbler/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test
// and a valid bounding box, then applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Region = config.Region{South: 21.5504, West: 88.2518, North: 22.2017, East: 89.0905}
	cfg.Catalog.APIKey = "test-key"
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Download.BackoffBaseMS = 1
	cfg.Catalog.PagePauseMS = 0

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return &cfg
}

// WithMaxRecordings caps the total recordings fetched by the test config.
func WithMaxRecordings(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Query.MaxRecordings = n
	}
}

// WithConcurrency sets the download worker pool size.
func WithConcurrency(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Download.Concurrency = n
	}
}

// WithRetryAttempts sets the per-item retry cap.
func WithRetryAttempts(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Download.RetryAttempts = n
	}
}

// WithCatalogBaseURL points the catalog client at a test server.
func WithCatalogBaseURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Catalog.BaseURL = url
	}
}
