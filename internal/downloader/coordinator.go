package downloader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"warbler/internal/config"
	"warbler/internal/fileutil"
	"warbler/internal/ledger"
	"warbler/internal/logging"
	"warbler/internal/organizer"
	"warbler/internal/xenocanto"
)

// Coordinator drains a catalog iterator through a bounded worker pool,
// downloading each descriptor's audio into the raw area, handing successful
// downloads to the organizer, and merging every outcome into the ledger.
type Coordinator struct {
	cfg     *config.Config
	store   *ledger.Store
	org     *organizer.Organizer
	fetcher *Fetcher
	logger  *slog.Logger
	sleeper func(context.Context, time.Duration) error
}

// CoordinatorOption customizes the coordinator.
type CoordinatorOption func(*Coordinator)

// WithFetcher overrides the payload fetcher (used in tests).
func WithFetcher(f *Fetcher) CoordinatorOption {
	return func(c *Coordinator) {
		if f != nil {
			c.fetcher = f
		}
	}
}

// WithSleeper overrides how backoff sleeps are performed (used in tests).
func WithSleeper(sleeper func(context.Context, time.Duration) error) CoordinatorOption {
	return func(c *Coordinator) {
		if sleeper != nil {
			c.sleeper = sleeper
		}
	}
}

// NewCoordinator wires the coordinator with its collaborators.
func NewCoordinator(cfg *config.Config, store *ledger.Store, org *organizer.Organizer, logger *slog.Logger, opts ...CoordinatorOption) *Coordinator {
	if logger == nil {
		logger = logging.NewNop()
	}
	c := &Coordinator{
		cfg:     cfg,
		store:   store,
		org:     org,
		fetcher: NewFetcher(cfg.RequestTimeout(), cfg.Catalog.UserAgent),
		logger:  logging.NewComponentLogger(logger, "downloader"),
		sleeper: sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run drains the iterator to completion. Descriptors already recorded as
// success are skipped without touching the network. A fatal iterator error
// still waits for in-flight workers and merges their outcomes before
// returning.
func (c *Coordinator) Run(ctx context.Context, it *xenocanto.Iterator, runID string) (Stats, error) {
	var stats Stats
	var mu sync.Mutex

	seed, err := c.store.Load(ctx)
	if err != nil {
		return stats, fmt.Errorf("seed ledger: %w", err)
	}

	concurrency := c.cfg.Download.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)

	// Outcomes are merged even when the run context is canceled, so a
	// drained worker's result is never lost.
	mergeCtx := context.WithoutCancel(ctx)

	for it.Next(ctx) {
		rec := it.Recording()

		if prior, known := seed[rec.ID]; known && prior.Status == ledger.StatusSuccess {
			outcome := Outcome{
				DescriptorID: rec.ID,
				Status:       ledger.StatusSkippedDuplicate,
				LocalPath:    prior.LocalPath,
			}
			c.finish(mergeCtx, rec, outcome, runID, &stats, &mu)
			continue
		}

		// Record the descriptor as pending before dispatch so a crashed run
		// leaves a visible trace of what it was attempting.
		pending := entryFromOutcome(rec, Outcome{DescriptorID: rec.ID, Status: ledger.StatusPending}, runID)
		if err := c.store.Merge(mergeCtx, pending); err != nil {
			c.logger.Warn("pending merge failed",
				logging.String("descriptor_id", rec.ID),
				logging.Error(err),
			)
		}

		group.Go(func() error {
			outcome := c.process(groupCtx, rec)
			c.finish(mergeCtx, rec, outcome, runID, &stats, &mu)
			return nil
		})
	}

	waitErr := group.Wait()

	if itErr := it.Err(); itErr != nil {
		return stats, fmt.Errorf("catalog iteration: %w", itErr)
	}
	if waitErr != nil {
		return stats, waitErr
	}
	return stats, ctx.Err()
}

// process downloads one descriptor with retries and places it in the corpus.
// It always returns a terminal outcome; per-item failures never abort the run.
func (c *Coordinator) process(ctx context.Context, rec *xenocanto.Recording) Outcome {
	downloadURL := rec.DownloadURL()
	if downloadURL == "" {
		return Outcome{
			DescriptorID: rec.ID,
			Status:       ledger.StatusFailed,
			ErrorKind:    ledger.ErrorKindFetchFailed,
			Err:          errors.New("descriptor has no download url"),
		}
	}

	rawPath := filepath.Join(c.cfg.RawDir(), "XC"+rec.ID+rec.Ext())
	partialPath := rawPath + ".partial"

	attempts := c.cfg.Download.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var written int64
	var lastErr error
	attempt := 0
	for attempt = 1; attempt <= attempts; attempt++ {
		written, lastErr = c.fetcher.FetchToFile(ctx, downloadURL, partialPath)
		if lastErr == nil {
			break
		}
		if !isTransientFetch(lastErr) || attempt == attempts {
			break
		}
		delay := backoffDelay(attempt, c.cfg.BackoffBase())
		c.logger.Warn("download failed, retrying",
			logging.String("descriptor_id", rec.ID),
			logging.Int("attempt", attempt),
			logging.Duration("backoff", delay),
			logging.Error(lastErr),
		)
		if sleepErr := c.sleeper(ctx, delay); sleepErr != nil {
			lastErr = sleepErr
			break
		}
	}

	if lastErr != nil {
		kind := ledger.ErrorKindFetchFailed
		if errors.Is(lastErr, errEmptyPayload) {
			kind = ledger.ErrorKindEmptyPayload
		}
		return Outcome{
			DescriptorID: rec.ID,
			Status:       ledger.StatusFailed,
			ErrorKind:    kind,
			Err:          lastErr,
			Attempts:     attempt,
		}
	}

	if err := fileutil.MoveFile(partialPath, rawPath); err != nil {
		_ = os.Remove(partialPath)
		return Outcome{
			DescriptorID: rec.ID,
			Status:       ledger.StatusFailed,
			ErrorKind:    ledger.ErrorKindFetchFailed,
			Err:          fmt.Errorf("finalize raw file: %w", err),
			Attempts:     attempt,
		}
	}

	finalPath, err := c.org.Place(rec, rawPath)
	if err != nil {
		return Outcome{
			DescriptorID: rec.ID,
			Status:       ledger.StatusFailed,
			ErrorKind:    ledger.ErrorKindPlacementError,
			Err:          err,
			BytesWritten: written,
			Attempts:     attempt,
		}
	}

	return Outcome{
		DescriptorID: rec.ID,
		Status:       ledger.StatusSuccess,
		LocalPath:    finalPath,
		BytesWritten: written,
		Attempts:     attempt,
	}
}

// finish merges the outcome into the ledger and folds it into the run stats.
func (c *Coordinator) finish(ctx context.Context, rec *xenocanto.Recording, outcome Outcome, runID string, stats *Stats, mu *sync.Mutex) {
	entry := entryFromOutcome(rec, outcome, runID)
	if err := c.store.Merge(ctx, entry); err != nil {
		c.logger.Error("ledger merge failed",
			logging.String("descriptor_id", rec.ID),
			logging.Error(err),
		)
	}

	switch outcome.Status {
	case ledger.StatusSuccess:
		c.logger.Info("recording acquired",
			logging.String("descriptor_id", rec.ID),
			logging.String("species", rec.ScientificName()),
			logging.Int64("bytes", outcome.BytesWritten),
			logging.Int("attempts", outcome.Attempts),
		)
	case ledger.StatusSkippedDuplicate:
		c.logger.Debug("recording already acquired",
			logging.String("descriptor_id", rec.ID),
		)
	case ledger.StatusFailed:
		c.logger.Warn("recording failed",
			logging.String("descriptor_id", rec.ID),
			logging.String("error_kind", outcome.ErrorKind),
			logging.Error(outcome.Err),
		)
	}

	mu.Lock()
	stats.record(outcome)
	mu.Unlock()
}

func entryFromOutcome(rec *xenocanto.Recording, outcome Outcome, runID string) ledger.Entry {
	entry := ledger.Entry{
		DescriptorID:   rec.ID,
		ScientificName: rec.ScientificName(),
		CommonName:     rec.CommonName,
		DownloadURL:    rec.DownloadURL(),
		Quality:        rec.Quality,
		License:        rec.License,
		RecordedDate:   rec.Date,
		Location:       rec.Location,
		Country:        rec.Country,
		Status:         outcome.Status,
		ErrorKind:      outcome.ErrorKind,
		LocalPath:      outcome.LocalPath,
		BytesWritten:   outcome.BytesWritten,
		Attempts:       outcome.Attempts,
		RunID:          runID,
	}
	if outcome.Err != nil {
		entry.ErrorMessage = outcome.Err.Error()
	}
	return entry
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
