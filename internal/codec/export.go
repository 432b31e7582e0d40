package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/tallykeep/internal/checksum"
	"github.com/roach88/tallykeep/internal/integrity"
	"github.com/roach88/tallykeep/internal/model"
	"github.com/roach88/tallykeep/internal/snapshot"
)

// ErrInvalidSnapshot is returned by Export when the snapshot fails the shape check.
var ErrInvalidSnapshot = errors.New("codec: invalid snapshot")

// Envelope is the outer export document.
type Envelope struct {
	Data       json.RawMessage `json:"data"`
	Checksum   string          `json:"checksum"`
	ExportedBy string          `json:"exportedBy"`
}

// exportData is the snapshot plus export provenance, flattened into "data".
type exportData struct {
	model.Snapshot
	ExportedAt    string `json:"exportedAt"`
	ExportVersion string `json:"exportVersion"`
}

// Exporter builds export documents.
type Exporter struct {
	// Clock stamps exportedAt. Defaults to snapshot.SystemClock.
	Clock snapshot.Clock
	// ExportedBy labels the producer. Defaults to model.ExportedBy.
	ExportedBy string
}

// Export renders snap with the default exporter.
func Export(snap model.Snapshot, clock snapshot.Clock) (string, error) {
	return Exporter{Clock: clock}.Export(snap)
}

// Export validates snap and renders it as an indented, checksummed document.
//
// "data" is written with sorted keys and its strings untouched. The checksum
// covers its canonical form, so re-indenting the document does not
// invalidate it.
func (e Exporter) Export(snap model.Snapshot) (string, error) {
	if err := integrity.ValidateSnapshot(snap); err != nil {
		exportsTotal.WithLabelValues("invalid").Inc()
		return "", fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}

	clock := e.Clock
	if clock == nil {
		clock = snapshot.SystemClock
	}
	by := e.ExportedBy
	if by == "" {
		by = model.ExportedBy
	}

	data, err := checksum.MarshalSorted(exportData{
		Snapshot:      snap,
		ExportedAt:    clock.Now().UTC().Format(time.RFC3339),
		ExportVersion: model.ExportVersion,
	})
	if err != nil {
		exportsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("export: %w", err)
	}

	sum, err := checksum.OfJSON(data)
	if err != nil {
		exportsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("export: %w", err)
	}

	doc, err := json.MarshalIndent(Envelope{
		Data:       data,
		Checksum:   sum,
		ExportedBy: by,
	}, "", "  ")
	if err != nil {
		exportsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("export: %w", err)
	}

	exportsTotal.WithLabelValues("success").Inc()
	return string(doc), nil
}
