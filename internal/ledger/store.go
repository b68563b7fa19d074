package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"warbler/internal/config"
)

// Store manages ledger persistence backed by SQLite. WAL mode plus a busy
// timeout make concurrent merges from download workers safe; SQLite
// serializes the writes.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger database and verifies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.LedgerPath())
}

// OpenPath opens a ledger at an explicit database path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database location backing the store.
func (s *Store) Path() string {
	return s.path
}

const entryColumns = `descriptor_id, scientific_name, common_name, download_url,
	quality, license, recorded_date, location, country,
	status, error_kind, error_message, local_path, bytes_written, attempts, run_id,
	created_at, updated_at`

// Merge upserts an entry keyed by descriptor id. An existing success row is
// never downgraded: later runs may flip a failed entry to success (or fail it
// again), but a recorded placement survives everything.
func (s *Store) Merge(ctx context.Context, e Entry) error {
	if strings.TrimSpace(e.DescriptorID) == "" {
		return errors.New("descriptor id is required")
	}
	if !e.Status.Valid() {
		return fmt.Errorf("invalid status %q", e.Status)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ledger_entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(descriptor_id) DO UPDATE SET
			scientific_name = excluded.scientific_name,
			common_name     = excluded.common_name,
			download_url    = excluded.download_url,
			quality         = excluded.quality,
			license         = excluded.license,
			recorded_date   = excluded.recorded_date,
			location        = excluded.location,
			country         = excluded.country,
			status          = excluded.status,
			error_kind      = excluded.error_kind,
			error_message   = excluded.error_message,
			local_path      = excluded.local_path,
			bytes_written   = excluded.bytes_written,
			attempts        = excluded.attempts,
			run_id          = excluded.run_id,
			updated_at      = excluded.updated_at
		WHERE ledger_entries.status != ?`,
		e.DescriptorID, e.ScientificName, e.CommonName, e.DownloadURL,
		e.Quality, e.License, e.RecordedDate, e.Location, e.Country,
		string(e.Status), e.ErrorKind, e.ErrorMessage, e.LocalPath, e.BytesWritten, e.Attempts, e.RunID,
		now, now,
		string(StatusSuccess),
	)
	if err != nil {
		return fmt.Errorf("merge entry %s: %w", e.DescriptorID, err)
	}
	return nil
}

// Get fetches a single entry by descriptor id, or nil when absent.
func (s *Store) Get(ctx context.Context, descriptorID string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM ledger_entries WHERE descriptor_id = ?`, descriptorID)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return entry, nil
}

// Load returns the full mapping from descriptor id to entry. It is consulted
// at startup to seed duplicate-skip checks.
func (s *Store) Load(ctx context.Context) (map[string]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM ledger_entries ORDER BY descriptor_id`)
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	defer rows.Close()

	entries := make(map[string]Entry)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries[entry.DescriptorID] = *entry
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// List returns entries filtered by status, or all entries when status is empty,
// ordered by species then descriptor id.
func (s *Store) List(ctx context.Context, status Status) ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY scientific_name, descriptor_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// CountByStatus aggregates entry totals for summaries.
func (s *Store) CountByStatus(ctx context.Context) (Counts, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(1) FROM ledger_entries GROUP BY status`)
	if err != nil {
		return Counts{}, fmt.Errorf("count entries: %w", err)
	}
	defer rows.Close()

	var counts Counts
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return Counts{}, fmt.Errorf("scan count: %w", err)
		}
		switch Status(status) {
		case StatusSuccess:
			counts.Success = n
		case StatusFailed:
			counts.Failed = n
		case StatusSkippedDuplicate:
			counts.Skipped = n
		case StatusPending:
			counts.Pending = n
		}
		counts.Total += n
	}
	if err := rows.Err(); err != nil {
		return Counts{}, fmt.Errorf("iterate counts: %w", err)
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT scientific_name) FROM ledger_entries WHERE status = ?`,
		string(StatusSuccess),
	).Scan(&counts.Species); err != nil {
		return Counts{}, fmt.Errorf("count species: %w", err)
	}
	return counts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var e Entry
	var status, createdAt, updatedAt string
	if err := row.Scan(
		&e.DescriptorID, &e.ScientificName, &e.CommonName, &e.DownloadURL,
		&e.Quality, &e.License, &e.RecordedDate, &e.Location, &e.Country,
		&status, &e.ErrorKind, &e.ErrorMessage, &e.LocalPath, &e.BytesWritten, &e.Attempts, &e.RunID,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	e.Status = Status(status)
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		e.CreatedAt = ts
	}
	if ts, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		e.UpdatedAt = ts
	}
	return &e, nil
}
