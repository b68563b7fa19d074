package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable. Validation failures are
// startup errors; nothing network-facing has happened yet.
func (c *Config) Validate() error {
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateRegion(); err != nil {
		return err
	}
	if err := c.validateQuery(); err != nil {
		return err
	}
	if err := c.validateDownload(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateCatalog() error {
	if c.Catalog.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/warbler/config.toml"
		}
		return fmt.Errorf("catalog.api_key is required. Set %s env var or edit %s (create with 'warbler config init')", APIKeyEnvVar, defaultPath)
	}
	if c.Catalog.PageRetryAttempts < 1 {
		return errors.New("catalog.page_retry_attempts must be at least 1")
	}
	if c.Catalog.PagePauseMS < 0 {
		return errors.New("catalog.page_pause_ms must not be negative")
	}
	return nil
}

func (c *Config) validateRegion() error {
	r := c.Region
	if r.South < -90 || r.South > 90 || r.North < -90 || r.North > 90 {
		return errors.New("region latitudes must be between -90 and 90")
	}
	if r.West < -180 || r.West > 180 || r.East < -180 || r.East > 180 {
		return errors.New("region longitudes must be between -180 and 180")
	}
	if r.South >= r.North {
		return fmt.Errorf("region.south (%.4f) must be less than region.north (%.4f)", r.South, r.North)
	}
	if r.West >= r.East {
		return fmt.Errorf("region.west (%.4f) must be less than region.east (%.4f)", r.West, r.East)
	}
	return nil
}

func (c *Config) validateQuery() error {
	if c.Query.MaxRecordings < 0 {
		return errors.New("query.max_recordings must not be negative (0 means unlimited)")
	}
	return nil
}

func (c *Config) validateDownload() error {
	if c.Download.Concurrency < 1 {
		return errors.New("download.concurrency must be at least 1")
	}
	if c.Download.RetryAttempts < 1 {
		return errors.New("download.retry_attempts must be at least 1")
	}
	if c.Download.BackoffBaseMS < 1 {
		return errors.New("download.backoff_base_ms must be positive")
	}
	if c.Download.RequestTimeoutSeconds < 1 {
		return errors.New("download.request_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
