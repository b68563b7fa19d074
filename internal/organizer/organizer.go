package organizer

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"warbler/internal/config"
	"warbler/internal/fileutil"
	"warbler/internal/logging"
	"warbler/internal/textutil"
	"warbler/internal/xenocanto"
)

// PlacementError indicates an item could not be placed into the corpus. It is
// a per-item failure: the run continues and the ledger records the outcome.
type PlacementError struct {
	DescriptorID string
	Path         string
	Err          error
}

func (e *PlacementError) Error() string {
	return fmt.Sprintf("place %s at %s: %v", e.DescriptorID, e.Path, e.Err)
}

func (e *PlacementError) Unwrap() error {
	return e.Err
}

// Organizer copies raw downloads into per-species corpus directories.
type Organizer struct {
	corpusDir string
	logger    *slog.Logger
}

// New constructs an organizer rooted at the configured corpus directory.
func New(cfg *config.Config, logger *slog.Logger) *Organizer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Organizer{
		corpusDir: cfg.CorpusDir(),
		logger:    logging.NewComponentLogger(logger, "organizer"),
	}
}

// SpeciesDir derives the canonical directory name for a descriptor:
// "Genus epithet_Common Name" with normalized casing and whitespace. Unknown
// parts fall back to placeholders so a malformed descriptor still gets a home.
func SpeciesDir(rec *xenocanto.Recording) string {
	// cases.Caser carries transform state; build one per call so concurrent
	// workers never share it.
	titleCaser := cases.Title(language.English)

	genus := textutil.CollapseWhitespace(rec.Genus)
	epithet := textutil.CollapseWhitespace(rec.Species)
	common := textutil.CollapseWhitespace(rec.CommonName)

	if genus == "" {
		genus = "Unknown"
	} else {
		genus = titleCaser.String(strings.ToLower(genus))
	}
	if epithet == "" {
		epithet = "sp"
	} else {
		epithet = strings.ToLower(epithet)
	}
	if common == "" {
		common = "Unknown"
	} else {
		common = titleCaser.String(strings.ToLower(common))
	}

	name := fmt.Sprintf("%s %s_%s", genus, epithet, common)
	return textutil.SanitizeFileName(name)
}

// Place copies the raw audio file into the species directory and returns the
// final corpus path. The copy is hash-verified so a truncated or corrupted
// placement never counts as success.
func (o *Organizer) Place(rec *xenocanto.Recording, rawPath string) (string, error) {
	speciesDir := filepath.Join(o.corpusDir, SpeciesDir(rec))
	if err := ensureDir(speciesDir); err != nil {
		return "", &PlacementError{DescriptorID: rec.ID, Path: speciesDir, Err: err}
	}

	finalPath := filepath.Join(speciesDir, "XC"+rec.ID+rec.Ext())
	if err := fileutil.CopyFileVerified(rawPath, finalPath); err != nil {
		return "", &PlacementError{DescriptorID: rec.ID, Path: finalPath, Err: err}
	}

	o.logger.Debug("placed recording",
		logging.String("descriptor_id", rec.ID),
		logging.String("species_dir", filepath.Base(speciesDir)),
		logging.String("path", finalPath))
	return finalPath, nil
}

func ensureDir(path string) error {
	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return nil
	case err == nil:
		return fmt.Errorf("path exists and is not a directory")
	case os.IsNotExist(err):
		return os.MkdirAll(path, 0o755)
	default:
		return err
	}
}
