package xenocanto

import (
	"encoding/json"
	"testing"
)

func TestDownloadURLNormalization(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"https://xeno-canto.org/sounds/uploaded/a/XC1.mp3", "https://xeno-canto.org/sounds/uploaded/a/XC1.mp3"},
		{"//xeno-canto.org/sounds/uploaded/a/XC1.mp3", "https://xeno-canto.org/sounds/uploaded/a/XC1.mp3"},
		{"/sounds/uploaded/a/XC1.mp3", "https://xeno-canto.org/sounds/uploaded/a/XC1.mp3"},
		{"", ""},
	}
	for _, tc := range cases {
		rec := Recording{FileURL: tc.input}
		if got := rec.DownloadURL(); got != tc.want {
			t.Fatalf("DownloadURL(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestExtDefaultsToMP3(t *testing.T) {
	rec := Recording{FileName: "XC100 - something.mp3"}
	if got := rec.Ext(); got != ".mp3" {
		t.Fatalf("Ext = %q", got)
	}
	rec = Recording{FileName: "XC100 - something.wav"}
	if got := rec.Ext(); got != ".wav" {
		t.Fatalf("Ext = %q", got)
	}
	rec = Recording{}
	if got := rec.Ext(); got != ".mp3" {
		t.Fatalf("Ext on empty descriptor = %q", got)
	}
}

func TestScientificName(t *testing.T) {
	rec := Recording{Genus: " Copsychus ", Species: " saularis "}
	if got := rec.ScientificName(); got != "Copsychus saularis" {
		t.Fatalf("ScientificName = %q", got)
	}
}

func TestSearchResponseToleratesQuotedAndBareNumbers(t *testing.T) {
	for _, body := range []string{
		`{"numRecordings":"822","numPages":"2","recordings":[]}`,
		`{"numRecordings":822,"numPages":2,"recordings":[]}`,
	} {
		var resp searchResponse
		if err := json.Unmarshal([]byte(body), &resp); err != nil {
			t.Fatalf("unmarshal %s: %v", body, err)
		}
		if resp.NumPages != 2 {
			t.Fatalf("numPages = %d, want 2", resp.NumPages)
		}
	}
}
