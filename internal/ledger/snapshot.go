package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"warbler/internal/fileutil"
)

// SnapshotEntry is the JSON shape of one ledger row in the aggregated
// metadata file consumed by downstream tooling.
type SnapshotEntry struct {
	DescriptorID   string `json:"id"`
	ScientificName string `json:"scientific_name"`
	CommonName     string `json:"common_name"`
	DownloadURL    string `json:"download_url"`
	Quality        string `json:"quality,omitempty"`
	License        string `json:"license,omitempty"`
	RecordedDate   string `json:"date,omitempty"`
	Location       string `json:"location,omitempty"`
	Country        string `json:"country,omitempty"`
	Status         string `json:"status"`
	ErrorKind      string `json:"error_kind,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`
	LocalPath      string `json:"local_path,omitempty"`
	BytesWritten   int64  `json:"bytes_written,omitempty"`
	Attempts       int    `json:"attempts,omitempty"`
	RunID          string `json:"run_id,omitempty"`
	UpdatedAt      string `json:"updated_at"`
}

// ExportSnapshot writes the aggregated metadata file for every attempted
// descriptor. The file is replaced atomically so a crash mid-export never
// corrupts the previous snapshot.
func (s *Store) ExportSnapshot(ctx context.Context, path string) error {
	entries, err := s.List(ctx, "")
	if err != nil {
		return err
	}

	snapshot := make([]SnapshotEntry, 0, len(entries))
	for _, e := range entries {
		snapshot = append(snapshot, SnapshotEntry{
			DescriptorID:   e.DescriptorID,
			ScientificName: e.ScientificName,
			CommonName:     e.CommonName,
			DownloadURL:    e.DownloadURL,
			Quality:        e.Quality,
			License:        e.License,
			RecordedDate:   e.RecordedDate,
			Location:       e.Location,
			Country:        e.Country,
			Status:         string(e.Status),
			ErrorKind:      e.ErrorKind,
			ErrorMessage:   e.ErrorMessage,
			LocalPath:      e.LocalPath,
			BytesWritten:   e.BytesWritten,
			Attempts:       e.Attempts,
			RunID:          e.RunID,
			UpdatedAt:      e.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}

	encoded, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, encoded, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
