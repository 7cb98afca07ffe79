package audit

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidTimeRange is returned when start time is after end time.
	ErrInvalidTimeRange = errors.New("audit: start_time must be before end_time")
	// ErrTrailNotConfigured is returned when export is invoked without a trail.
	ErrTrailNotConfigured = errors.New("audit: trail not configured (fail-closed)")
)

// ExportRequest defines what to export. Zero times mean unbounded.
type ExportRequest struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// Exporter bundles trail entries into evidence packs for offline
// review, such as a retraction dispute or an index audit.
type Exporter struct {
	trail *Trail
	clock func() time.Time
}

func NewExporter(t *Trail) *Exporter {
	return &Exporter{trail: t, clock: time.Now}
}

// WithClock overrides the clock for deterministic testing.
func (e *Exporter) WithClock(clock func() time.Time) *Exporter {
	e.clock = clock
	return e
}

// GeneratePack creates a zip file containing the selected trail entries
// and a manifest that pins the chain head, then returns the zip bytes
// with their sha256 checksum.
func (e *Exporter) GeneratePack(req ExportRequest) ([]byte, string, error) {
	if !req.StartTime.IsZero() && !req.EndTime.IsZero() && req.StartTime.After(req.EndTime) {
		return nil, "", ErrInvalidTimeRange
	}
	if e.trail == nil {
		return nil, "", ErrTrailNotConfigured
	}

	entries := e.trail.Between(req.StartTime, req.EndTime)
	entriesJSON, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, "", err
	}

	manifest := map[string]any{
		"generated_at": e.clock().UTC(),
		"entry_count":  len(entries),
		"chain_head":   e.trail.ChainHead(),
		"period": map[string]any{
			"start": req.StartTime,
			"end":   req.EndTime,
		},
	}
	manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("audit: failed to marshal manifest: %w", err)
	}

	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	f, err := w.Create("entries.json")
	if err != nil {
		return nil, "", err
	}
	_, _ = f.Write(entriesJSON)

	f, err = w.Create("manifest.json")
	if err != nil {
		return nil, "", err
	}
	_, _ = f.Write(manifestJSON)

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	zipBytes := buf.Bytes()
	hash := sha256.Sum256(zipBytes)
	return zipBytes, hex.EncodeToString(hash[:]), nil
}

// Between returns entries whose timestamp falls inside the range, in
// append order. Zero bounds are open-ended.
func (t *Trail) Between(start, end time.Time) []*Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []*Entry
	for _, entry := range t.entries {
		if !start.IsZero() && entry.Timestamp.Before(start) {
			continue
		}
		if !end.IsZero() && entry.Timestamp.After(end) {
			continue
		}
		out = append(out, entry)
	}
	return out
}
