// Package collect runs one end-to-end acquisition: catalog query, bounded
// concurrent downloads, corpus placement, ledger merge, and the aggregated
// metadata snapshot. Runs are idempotent; re-running against the same output
// directory only acquires what is missing.
package collect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"warbler/internal/config"
	"warbler/internal/downloader"
	"warbler/internal/ledger"
	"warbler/internal/logging"
	"warbler/internal/organizer"
	"warbler/internal/xenocanto"
)

// ErrAlreadyRunning indicates another collection holds the output lock.
var ErrAlreadyRunning = errors.New("another collection is already running against this output directory")

// Result summarizes a finished (or aborted) collection run. Species is the
// distinct count of successfully acquired species across all runs so far.
type Result struct {
	RunID        string
	Stats        downloader.Stats
	Species      int
	SnapshotPath string
	Duration     time.Duration
}

// Run executes a full collection. The snapshot is exported even when the run
// fails or is canceled, so the metadata file always reflects the ledger.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	runLogger := logging.NewComponentLogger(logger, "collect")

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("prepare output directories: %w", err)
	}

	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return nil, ErrAlreadyRunning
	}
	defer func() {
		_ = lock.Unlock()
	}()

	store, err := ledger.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer store.Close()

	runID := uuid.NewString()
	started := time.Now()
	runLogger.Info("collection started",
		logging.String("run_id", runID),
		logging.String("output_dir", cfg.Paths.OutputDir),
		logging.Float64("south", cfg.Region.South),
		logging.Float64("north", cfg.Region.North),
		logging.Float64("west", cfg.Region.West),
		logging.Float64("east", cfg.Region.East),
	)

	client := xenocanto.NewClient(xenocanto.ConfigFromApp(cfg), xenocanto.WithLogger(logger))
	it := client.Search(queryFromConfig(cfg))

	org := organizer.New(cfg, logger)
	coord := downloader.NewCoordinator(cfg, store, org, logger)

	stats, runErr := coord.Run(ctx, it, runID)

	// Snapshot export runs even after cancellation so partial progress is
	// durable for the next run.
	snapshotCtx := context.WithoutCancel(ctx)
	if err := store.ExportSnapshot(snapshotCtx, cfg.SnapshotPath()); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("export snapshot: %w", err))
	}

	result := &Result{
		RunID:        runID,
		Stats:        stats,
		SnapshotPath: cfg.SnapshotPath(),
		Duration:     time.Since(started),
	}
	if counts, countErr := store.CountByStatus(snapshotCtx); countErr == nil {
		result.Species = counts.Species
	}

	if runErr != nil {
		runLogger.Error("collection aborted",
			logging.String("run_id", runID),
			logging.Int("succeeded", stats.Succeeded),
			logging.Int("failed", stats.Failed),
			logging.Int("skipped", stats.Skipped),
			logging.Error(runErr),
		)
		return result, runErr
	}

	runLogger.Info("collection finished",
		logging.String("run_id", runID),
		logging.Int("attempted", stats.Attempted),
		logging.Int("succeeded", stats.Succeeded),
		logging.Int("failed", stats.Failed),
		logging.Int("skipped", stats.Skipped),
		logging.Int("species", result.Species),
		logging.Int64("bytes", stats.Bytes),
		logging.Duration("duration", result.Duration),
	)
	return result, nil
}

func queryFromConfig(cfg *config.Config) xenocanto.Query {
	return xenocanto.Query{
		South:      cfg.Region.South,
		West:       cfg.Region.West,
		North:      cfg.Region.North,
		East:       cfg.Region.East,
		Taxon:      cfg.Query.Taxon,
		MaxResults: cfg.Query.MaxRecordings,
	}
}
