package ledger_test

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"warbler/internal/ledger"
	"warbler/internal/testsupport"
)

func TestExportSnapshotWritesAllEntries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	success := sampleEntry("5001", ledger.StatusSuccess)
	success.LocalPath = "/corpus/x/XC5001.mp3"
	success.BytesWritten = 4096
	failed := sampleEntry("5002", ledger.StatusFailed)
	failed.ErrorKind = ledger.ErrorKindEmptyPayload
	failed.ErrorMessage = "zero-byte payload"
	for _, e := range []ledger.Entry{success, failed} {
		if err := store.Merge(ctx, e); err != nil {
			t.Fatalf("Merge failed: %v", err)
		}
	}

	if err := store.ExportSnapshot(ctx, cfg.SnapshotPath()); err != nil {
		t.Fatalf("ExportSnapshot failed: %v", err)
	}

	data, err := os.ReadFile(cfg.SnapshotPath())
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	var entries []ledger.SnapshotEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("snapshot is not valid JSON: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("snapshot has %d entries, want 2", len(entries))
	}

	byID := make(map[string]ledger.SnapshotEntry, len(entries))
	for _, e := range entries {
		byID[e.DescriptorID] = e
	}
	if got := byID["5001"]; got.Status != "success" || got.BytesWritten != 4096 {
		t.Fatalf("unexpected success entry: %+v", got)
	}
	if got := byID["5002"]; got.ErrorKind != ledger.ErrorKindEmptyPayload || got.ErrorMessage == "" {
		t.Fatalf("unexpected failed entry: %+v", got)
	}
}

func TestExportSnapshotReplacesPrevious(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if err := store.Merge(ctx, sampleEntry("6001", ledger.StatusFailed)); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if err := store.ExportSnapshot(ctx, cfg.SnapshotPath()); err != nil {
		t.Fatalf("first export failed: %v", err)
	}

	flipped := sampleEntry("6001", ledger.StatusSuccess)
	flipped.LocalPath = "/corpus/x/XC6001.mp3"
	if err := store.Merge(ctx, flipped); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if err := store.ExportSnapshot(ctx, cfg.SnapshotPath()); err != nil {
		t.Fatalf("second export failed: %v", err)
	}

	data, err := os.ReadFile(cfg.SnapshotPath())
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	var entries []ledger.SnapshotEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("snapshot is not valid JSON: %v", err)
	}
	if len(entries) != 1 || entries[0].Status != "success" {
		t.Fatalf("snapshot did not reflect the updated ledger: %+v", entries)
	}
}

func TestExportSnapshotEmptyLedger(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if err := store.ExportSnapshot(context.Background(), cfg.SnapshotPath()); err != nil {
		t.Fatalf("ExportSnapshot failed: %v", err)
	}
	data, err := os.ReadFile(cfg.SnapshotPath())
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	var entries []ledger.SnapshotEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("snapshot is not valid JSON: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty snapshot, got %d entries", len(entries))
	}
}
