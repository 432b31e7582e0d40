package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/roach88/tallykeep/internal/checksum"
	"github.com/roach88/tallykeep/internal/integrity"
	"github.com/roach88/tallykeep/internal/logger"
	"github.com/roach88/tallykeep/internal/model"
	"github.com/roach88/tallykeep/internal/snapshot"
)

// Messages reported on Result.
const (
	MsgChecksumMismatch = "Checksum mismatch - data may be corrupted"
	MsgLegacyFormat     = "Data imported from legacy format"
	MsgInvalidFormat    = "Invalid data format - unable to import"
	MsgFailedValidation = "Imported data failed validation"
)

// ErrChecksumMismatch labels checksum failures in logs. Import reports them
// as warnings, never as errors.
var ErrChecksumMismatch = errors.New("codec: checksum mismatch")

// Result is the outcome of an import.
//
// Data is set only when Success is true. Warnings never block success.
type Result struct {
	Success  bool             `json:"success"`
	Data     *model.Snapshot  `json:"data,omitempty"`
	Errors   []string         `json:"errors"`
	Warnings []string         `json:"warnings"`
	Mode     model.ImportMode `json:"mode"`
}

// Importer parses import documents.
type Importer struct {
	// Clock stamps lastModified on the imported snapshot. Defaults to snapshot.SystemClock.
	Clock snapshot.Clock
	Log   zerolog.Logger
}

// NewImporter returns an Importer using the codec component logger.
func NewImporter(clock snapshot.Clock) Importer {
	return Importer{Clock: clock, Log: logger.WithComponent("codec")}
}

// Import parses doc with a default Importer.
func Import(doc []byte, mode model.ImportMode, clock snapshot.Clock) Result {
	return NewImporter(clock).Import(doc, mode)
}

// legacyDefaults fills every key a legacy document may lack.
var legacyDefaults = map[string]json.RawMessage{
	"timeEntries":        json.RawMessage(`[]`),
	"invoices":           json.RawMessage(`[]`),
	"payments":           json.RawMessage(`[]`),
	"recurringTemplates": json.RawMessage(`[]`),
	"invoiceReminders":   json.RawMessage(`[]`),
	"exchangeRates":      json.RawMessage(`[]`),
	"billerInfo":         json.RawMessage(`{}`),
}

// Import parses doc as, in order of preference, an export envelope, a bare
// snapshot or a legacy document, then validates it.
//
// On success the snapshot's lastModified is set to the import time so a
// following sync treats it as the newest state.
func (im Importer) Import(doc []byte, mode model.ImportMode) Result {
	res := Result{Mode: mode, Errors: []string{}, Warnings: []string{}}

	if _, ok := model.ParseImportMode(string(mode)); !ok {
		res.Errors = append(res.Errors, fmt.Sprintf("Unknown import mode %q", mode))
		importsTotal.WithLabelValues("unknown", "rejected").Inc()
		return res
	}

	variant, err := integrity.Classify(doc)
	if err != nil {
		im.Log.Warn().Err(err).Int("bytes", len(doc)).Msg("import document not recognized")
		res.Errors = append(res.Errors, MsgInvalidFormat)
		importsTotal.WithLabelValues(variant.String(), "rejected").Inc()
		return res
	}

	var payload []byte
	switch variant {
	case integrity.VariantEnvelope:
		payload, err = im.openEnvelope(doc, &res)
	case integrity.VariantBare:
		payload = doc
	case integrity.VariantLegacy:
		payload, err = im.upgradeLegacy(doc)
		res.Warnings = append(res.Warnings, MsgLegacyFormat)
	}
	if err != nil {
		im.Log.Warn().Err(err).Str("format", variant.String()).Msg("import document unreadable")
		res.Errors = append(res.Errors, MsgInvalidFormat)
		importsTotal.WithLabelValues(variant.String(), "rejected").Inc()
		return res
	}

	snap, err := decodeSnapshot(payload)
	if err != nil {
		im.Log.Warn().Err(err).Str("format", variant.String()).Msg("import failed validation")
		res.Errors = append(res.Errors, MsgFailedValidation, err.Error())
		importsTotal.WithLabelValues(variant.String(), "invalid").Inc()
		return res
	}

	if snap.Version != model.SchemaVersion {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"Data version %s differs from current version %s", snap.Version, model.SchemaVersion))
	}
	res.Warnings = append(res.Warnings, integrity.ValidateReferences(snap)...)

	clock := im.Clock
	if clock == nil {
		clock = snapshot.SystemClock
	}
	snap.LastModified = clock.Now().UnixMilli()

	res.Success = true
	res.Data = &snap
	importsTotal.WithLabelValues(variant.String(), "success").Inc()
	im.Log.Info().
		Str("format", variant.String()).
		Str("mode", string(mode)).
		Int("warnings", len(res.Warnings)).
		Msg("import parsed")
	return res
}

// openEnvelope returns the envelope's data, recording a warning when the
// checksum does not match.
func (im Importer) openEnvelope(doc []byte, res *Result) ([]byte, error) {
	var env Envelope
	if err := json.Unmarshal(doc, &env); err != nil {
		return nil, fmt.Errorf("envelope: %w", err)
	}

	ok, err := checksum.Verify(env.Data, env.Checksum)
	if err != nil {
		return nil, fmt.Errorf("envelope data: %w", err)
	}
	if !ok {
		im.Log.Warn().Err(ErrChecksumMismatch).Str("checksum", env.Checksum).Msg("envelope checksum mismatch")
		checksumMismatchTotal.Inc()
		res.Warnings = append(res.Warnings, MsgChecksumMismatch)
	}
	return env.Data, nil
}

// upgradeLegacy backfills the collections a legacy document predates.
func (im Importer) upgradeLegacy(doc []byte) ([]byte, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(doc, &fields); err != nil {
		return nil, fmt.Errorf("legacy: %w", err)
	}

	for key, def := range legacyDefaults {
		if _, ok := fields[key]; !ok {
			fields[key] = def
		}
	}
	if _, ok := fields["version"]; !ok {
		fields["version"] = json.RawMessage(`"` + model.SchemaVersion + `"`)
	}
	if _, ok := fields["lastModified"]; !ok {
		fields["lastModified"] = json.RawMessage(`0`)
	}

	return json.Marshal(fields)
}

// decodeSnapshot shape-checks payload and decodes it.
func decodeSnapshot(payload []byte) (model.Snapshot, error) {
	if err := integrity.CheckShape(payload); err != nil {
		return model.Snapshot{}, err
	}

	var snap model.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return model.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	snap.Normalize()
	return snap, nil
}
