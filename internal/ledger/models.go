package ledger

import "time"

// Status represents the acquisition state of a descriptor.
//
// Per descriptor the lifecycle is unseen -> pending -> terminal. Success and
// skipped_duplicate are stable across runs; failed is terminal for the run
// but re-attempted on the next one.
type Status string

const (
	StatusPending          Status = "pending"
	StatusSuccess          Status = "success"
	StatusFailed           Status = "failed"
	StatusSkippedDuplicate Status = "skipped_duplicate"
)

// Known error kinds recorded on failed entries.
const (
	ErrorKindFetchFailed    = "fetch_failed"
	ErrorKindEmptyPayload   = "empty_payload"
	ErrorKindPlacementError = "placement_error"
)

// Valid reports whether the status is one warbler knows about.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSuccess, StatusFailed, StatusSkippedDuplicate:
		return true
	}
	return false
}

// Entry is the union of a catalog descriptor and its download outcome, keyed
// by the catalog-assigned descriptor id.
type Entry struct {
	DescriptorID   string
	ScientificName string
	CommonName     string
	DownloadURL    string
	Quality        string
	License        string
	RecordedDate   string
	Location       string
	Country        string

	Status       Status
	ErrorKind    string
	ErrorMessage string
	LocalPath    string
	BytesWritten int64
	Attempts     int
	RunID        string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Counts aggregates entry totals by status for run summaries. Species is the
// number of distinct successfully acquired species.
type Counts struct {
	Success int
	Failed  int
	Skipped int
	Pending int
	Total   int
	Species int
}
