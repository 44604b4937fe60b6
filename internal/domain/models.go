package domain

import "fmt"

// Domain contains core models and interfaces.

// CatalogFields is the number of positional fields an artifact row must carry.
const CatalogFields = 6

// Artifact describes one catalog object and where its image lives.
type Artifact struct {
	Title           string `json:"title"`
	ImageURL        string `json:"image_url"`
	Date            string `json:"date"`
	AccessionNumber string `json:"accession_number"`
	Medium          string `json:"medium"`
	Location        string `json:"location"`
}

// NewArtifact maps a catalog row onto an Artifact. Fields are taken verbatim
// from offsets 0-5; anything past the sixth field is ignored.
func NewArtifact(row []string) (Artifact, error) {
	if len(row) < CatalogFields {
		return Artifact{}, fmt.Errorf("%w: got %d fields, want %d", ErrShortRow, len(row), CatalogFields)
	}
	return Artifact{
		Title:           row[0],
		ImageURL:        row[1],
		Date:            row[2],
		AccessionNumber: row[3],
		Medium:          row[4],
		Location:        row[5],
	}, nil
}

// FileName is the local image name for the artifact. It is neither unique nor
// sanitized for the filesystem.
func (a Artifact) FileName() string {
	return a.Title + "_" + a.AccessionNumber + ".jpg"
}
