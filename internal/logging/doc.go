// Package logging wraps log/slog with warbler's console and JSON handlers
// and typed attribute helpers.
package logging
