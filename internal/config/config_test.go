package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"warbler/internal/config"
)

func validConfig() config.Config {
	cfg := config.Default()
	cfg.Region = config.Region{South: 21.5504, West: 88.2518, North: 22.2017, East: 89.0905}
	cfg.Catalog.APIKey = "test-key"
	return cfg
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestValidateRequiresAPIKey(t *testing.T) {
	cfg := validConfig()
	cfg.Catalog.APIKey = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing api key")
	}
	if !strings.Contains(err.Error(), "api_key") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsBadBoundingBoxes(t *testing.T) {
	cases := []struct {
		name   string
		region config.Region
	}{
		{"zeroed", config.Region{}},
		{"inverted latitude", config.Region{South: 22.5, West: 88.0, North: 21.0, East: 89.0}},
		{"inverted longitude", config.Region{South: 21.0, West: 89.5, North: 22.0, East: 88.0}},
		{"latitude out of range", config.Region{South: -95, West: 88.0, North: 22.0, East: 89.0}},
		{"longitude out of range", config.Region{South: 21.0, West: -200, North: 22.0, East: 89.0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Region = tc.region
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestValidateRejectsBadDownloadSettings(t *testing.T) {
	cfg := validConfig()
	cfg.Download.Concurrency = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero concurrency")
	}

	cfg = validConfig()
	cfg.Download.RetryAttempts = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero retry attempts")
	}
}

func TestLoadParsesFileAndAppliesEnvKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
[region]
south = 21.5504
west = 88.2518
north = 22.2017
east = 89.0905

[query]
max_recordings = 25

[paths]
output_dir = "` + filepath.Join(dir, "out") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv(config.APIKeyEnvVar, "env-key")

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved == "" {
		t.Fatalf("expected config to be found, got exists=%v path=%q", exists, resolved)
	}
	if cfg.Query.MaxRecordings != 25 {
		t.Fatalf("max_recordings = %d, want 25", cfg.Query.MaxRecordings)
	}
	if cfg.Catalog.APIKey != "env-key" {
		t.Fatalf("api key = %q, want env fallback", cfg.Catalog.APIKey)
	}
	if cfg.Catalog.BaseURL == "" || cfg.Download.Concurrency != 4 {
		t.Fatal("expected defaults to survive partial config")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestDerivedPaths(t *testing.T) {
	cfg := validConfig()
	cfg.Paths.OutputDir = "/tmp/warbler-out"
	if got := cfg.RawDir(); got != filepath.Join("/tmp/warbler-out", "raw") {
		t.Fatalf("RawDir = %q", got)
	}
	if got := cfg.CorpusDir(); got != filepath.Join("/tmp/warbler-out", "corpus") {
		t.Fatalf("CorpusDir = %q", got)
	}
	if got := cfg.LedgerPath(); got != filepath.Join("/tmp/warbler-out", "ledger.db") {
		t.Fatalf("LedgerPath = %q", got)
	}
	if got := cfg.SnapshotPath(); got != filepath.Join("/tmp/warbler-out", "raw", "metadata.json") {
		t.Fatalf("SnapshotPath = %q", got)
	}
}

func TestEnsureDirectories(t *testing.T) {
	cfg := validConfig()
	base := t.TempDir()
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.RawDir(), cfg.CorpusDir(), cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}
