// Package ledger persists acquisition outcomes in a SQLite database keyed by
// descriptor id. The ledger is the durable source of truth for what has
// already been acquired: it seeds duplicate-skip checks on startup, absorbs
// concurrent merges from download workers, and exports the aggregated
// metadata snapshot consumed by downstream tooling.
package ledger
