package main

import (
	"context"
	"testing"

	"warbler/internal/ledger"
	"warbler/internal/testsupport"
)

func TestLedgerListAndFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := writeTestConfig(t, cfg)

	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	entries := []ledger.Entry{
		{
			DescriptorID:   "10",
			ScientificName: "Copsychus saularis",
			CommonName:     "Oriental Magpie-Robin",
			Status:         ledger.StatusSuccess,
			LocalPath:      "/corpus/x/XC10.mp3",
		},
		{
			DescriptorID:   "11",
			ScientificName: "Halcyon smyrnensis",
			CommonName:     "White-throated Kingfisher",
			Status:         ledger.StatusFailed,
			ErrorKind:      ledger.ErrorKindFetchFailed,
			ErrorMessage:   "http 503",
			Attempts:       5,
		},
	}
	for _, e := range entries {
		if err := store.Merge(ctx, e); err != nil {
			t.Fatalf("seed ledger: %v", err)
		}
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	out, _, err := runCLI(t, []string{"ledger", "list"}, path)
	if err != nil {
		t.Fatalf("ledger list: %v", err)
	}
	requireContains(t, out, "Copsychus saularis")
	requireContains(t, out, "2 entries: 1 success, 1 failed, 0 skipped")

	out, _, err = runCLI(t, []string{"ledger", "list", "--status", "success"}, path)
	if err != nil {
		t.Fatalf("ledger list --status: %v", err)
	}
	requireContains(t, out, "Copsychus saularis")

	out, _, err = runCLI(t, []string{"ledger", "failed"}, path)
	if err != nil {
		t.Fatalf("ledger failed: %v", err)
	}
	requireContains(t, out, "Halcyon smyrnensis")
	requireContains(t, out, "fetch_failed")
}

func TestLedgerListRejectsUnknownStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := writeTestConfig(t, cfg)

	if _, _, err := runCLI(t, []string{"ledger", "list", "--status", "bogus"}, path); err == nil {
		t.Fatal("expected unknown status to fail")
	}
}
