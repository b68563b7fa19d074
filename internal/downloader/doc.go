// Package downloader acquires catalog audio through a bounded worker pool.
// Each descriptor is fetched with retry and exponential backoff, staged in
// the raw area, placed into the corpus, and its outcome merged into the
// ledger. Per-item failures are recorded, never fatal; only catalog paging
// failures abort a run.
package downloader
