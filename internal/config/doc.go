// Package config loads, normalizes, and validates warbler's TOML
// configuration, providing derived paths for the output corpus, raw
// downloads, and the acquisition ledger.
package config
