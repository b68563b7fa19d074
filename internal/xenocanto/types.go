package xenocanto

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Recording is one catalog descriptor, immutable once fetched. Field names
// mirror the abbreviated keys of the Xeno-canto API v3 response.
type Recording struct {
	ID         string `json:"id"`
	Genus      string `json:"gen"`
	Species    string `json:"sp"`
	Subspecies string `json:"ssp"`
	CommonName string `json:"en"`
	Recordist  string `json:"rec"`
	Country    string `json:"cnt"`
	Location   string `json:"loc"`
	Latitude   string `json:"lat"`
	Longitude  string `json:"lng"`
	Quality    string `json:"q"`
	License    string `json:"lic"`
	Length     string `json:"length"`
	Date       string `json:"date"`
	FileURL    string `json:"file"`
	FileName   string `json:"file-name"`
}

// ScientificName joins genus and species epithet.
func (r *Recording) ScientificName() string {
	return strings.TrimSpace(strings.TrimSpace(r.Genus) + " " + strings.TrimSpace(r.Species))
}

// DownloadURL normalizes the descriptor's file URL. The catalog sometimes
// returns protocol-relative or path-only URLs.
func (r *Recording) DownloadURL() string {
	u := strings.TrimSpace(r.FileURL)
	switch {
	case u == "":
		return ""
	case strings.HasPrefix(u, "//"):
		return "https:" + u
	case strings.HasPrefix(u, "http://"), strings.HasPrefix(u, "https://"):
		return u
	default:
		return "https://xeno-canto.org" + u
	}
}

// Ext returns the audio file extension for this recording, defaulting to .mp3.
func (r *Recording) Ext() string {
	name := strings.ToLower(strings.TrimSpace(r.FileName))
	if name == "" {
		name = strings.ToLower(r.DownloadURL())
	}
	if strings.HasSuffix(name, ".wav") || strings.Contains(name, "wav") {
		return ".wav"
	}
	return ".mp3"
}

// intString tolerates numeric fields that the catalog returns either as JSON
// numbers or as quoted strings.
type intString int

func (n *intString) UnmarshalJSON(data []byte) error {
	trimmed := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if trimmed == "" || trimmed == "null" {
		*n = 0
		return nil
	}
	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return fmt.Errorf("parse numeric field %q: %w", trimmed, err)
	}
	*n = intString(value)
	return nil
}

type searchResponse struct {
	NumRecordings intString       `json:"numRecordings"`
	NumSpecies    intString       `json:"numSpecies"`
	Page          intString       `json:"page"`
	NumPages      intString       `json:"numPages"`
	Recordings    []Recording     `json:"recordings"`
	Error         json.RawMessage `json:"error"`
	Message       string          `json:"message"`
}

func (r *searchResponse) apiError() string {
	if len(r.Error) == 0 || string(r.Error) == "null" || string(r.Error) == "false" {
		return ""
	}
	if r.Message != "" {
		return r.Message
	}
	return strings.Trim(string(r.Error), `"`)
}
