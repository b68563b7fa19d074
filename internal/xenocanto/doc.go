// Package xenocanto is a client for the Xeno-canto recordings API v3. It
// exposes region-scoped searches as a lazy, restartable descriptor iterator
// that pages through results in a stable order and retries transient page
// failures with exponential backoff.
package xenocanto
