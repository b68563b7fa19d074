package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"warbler/internal/ledger"
	"warbler/internal/testsupport"
	"warbler/internal/xenocanto"
)

func TestParseBox(t *testing.T) {
	region, err := parseBox("21.5504, 88.2518, 22.2017, 89.0905")
	if err != nil {
		t.Fatalf("parseBox: %v", err)
	}
	if region.South != 21.5504 || region.West != 88.2518 || region.North != 22.2017 || region.East != 89.0905 {
		t.Fatalf("region = %+v", region)
	}

	for _, bad := range []string{"", "1,2,3", "1,2,3,4,5", "a,b,c,d"} {
		if _, err := parseBox(bad); err == nil {
			t.Fatalf("parseBox(%q) should fail", bad)
		}
	}
}

func TestCollectCommandEndToEnd(t *testing.T) {
	audio := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("payload"))
	}))
	defer audio.Close()

	recs := []xenocanto.Recording{
		{ID: "1", Genus: "Copsychus", Species: "saularis", CommonName: "Oriental Magpie-Robin", FileURL: audio.URL + "/1.mp3"},
		{ID: "2", Genus: "Copsychus", Species: "saularis", CommonName: "Oriental Magpie-Robin", FileURL: audio.URL + "/2.mp3"},
	}
	catalog := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"numRecordings": strconv.Itoa(len(recs)),
			"numPages":      "1",
			"recordings":    recs,
		})
	}))
	defer catalog.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithCatalogBaseURL(catalog.URL))
	path := writeTestConfig(t, cfg)

	out, _, err := runCLI(t, []string{"collect"}, path)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	requireContains(t, out, "Succeeded")
	requireContains(t, out, "Metadata snapshot")

	store, err := ledger.OpenPath(cfg.LedgerPath())
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	defer store.Close()
	counts, err := store.CountByStatus(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts.Success != 2 {
		t.Fatalf("counts = %+v", counts)
	}

	matches, _ := filepath.Glob(filepath.Join(cfg.CorpusDir(), "*", "*"))
	if len(matches) != 2 {
		t.Fatalf("corpus files = %v", matches)
	}
}

func TestCollectCommandRejectsBadBoxFlag(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := writeTestConfig(t, cfg)

	if _, _, err := runCLI(t, []string{"collect", "--box", "not-a-box"}, path); err == nil {
		t.Fatal("expected bad --box to fail")
	}
}
