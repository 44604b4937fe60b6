package publishers

import (
	"time"

	"github.com/samvad-hq/artifact-harvester/internal/domain"
)

// Event describes one completed image download.
type Event struct {
	RunID        string          `json:"run_id"`
	Artifact     domain.Artifact `json:"artifact"`
	FileName     string          `json:"file_name"`
	Path         string          `json:"path"`
	Bytes        int64           `json:"bytes"`
	DownloadedAt time.Time       `json:"downloaded_at"`
}

// NewEvent constructs an Event for an artifact saved at path.
func NewEvent(runID string, artifact domain.Artifact, path string, bytes int64) Event {
	return Event{
		RunID:        runID,
		Artifact:     artifact,
		FileName:     artifact.FileName(),
		Path:         path,
		Bytes:        bytes,
		DownloadedAt: time.Now().UTC(),
	}
}

// attributes are the routing attributes attached to queue and topic messages.
func (e Event) attributes() map[string]string {
	attrs := map[string]string{
		"accession_number": e.Artifact.AccessionNumber,
	}
	if e.RunID != "" {
		attrs["run_id"] = e.RunID
	}
	return attrs
}
