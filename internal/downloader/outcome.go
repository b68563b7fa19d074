package downloader

import "warbler/internal/ledger"

// Outcome is the terminal result of processing one descriptor. Every
// descriptor yielded by the catalog produces exactly one outcome per run.
type Outcome struct {
	DescriptorID string
	Status       ledger.Status
	LocalPath    string
	ErrorKind    string
	Err          error
	BytesWritten int64
	Attempts     int
}

// Stats aggregates per-run outcome totals.
type Stats struct {
	Attempted int
	Succeeded int
	Failed    int
	Skipped   int
	Bytes     int64
}

func (s *Stats) record(o Outcome) {
	s.Attempted++
	switch o.Status {
	case ledger.StatusSuccess:
		s.Succeeded++
		s.Bytes += o.BytesWritten
	case ledger.StatusFailed:
		s.Failed++
	case ledger.StatusSkippedDuplicate:
		s.Skipped++
	}
}
