package audit_test

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vantage-Labs/vantage/core/pkg/audit"
)

func TestExporterGeneratePack(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	trail := audit.NewTrail().WithClock(func() time.Time { return now })

	_, err := trail.Append(audit.EntryIngest, "ev-1", "ingested", map[string]string{"url": "https://a.example/x"}, nil)
	require.NoError(t, err)
	_, err = trail.Append(audit.EntryPromotion, "link-1", "promoted", nil, nil)
	require.NoError(t, err)

	exporter := audit.NewExporter(trail).WithClock(func() time.Time { return now })
	pack, checksum, err := exporter.GeneratePack(audit.ExportRequest{})
	require.NoError(t, err)

	sum := sha256.Sum256(pack)
	assert.Equal(t, hex.EncodeToString(sum[:]), checksum)

	r, err := zip.NewReader(bytes.NewReader(pack), int64(len(pack)))
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range r.File {
		names[f.Name] = true
	}
	assert.True(t, names["entries.json"])
	assert.True(t, names["manifest.json"])

	mf, err := r.Open("manifest.json")
	require.NoError(t, err)
	defer mf.Close()
	var manifest struct {
		EntryCount int    `json:"entry_count"`
		ChainHead  string `json:"chain_head"`
	}
	require.NoError(t, json.NewDecoder(mf).Decode(&manifest))
	assert.Equal(t, 2, manifest.EntryCount)
	assert.Equal(t, trail.ChainHead(), manifest.ChainHead)
}

func TestExporterGeneratePackTimeRange(t *testing.T) {
	day1 := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)

	current := day1
	trail := audit.NewTrail().WithClock(func() time.Time { return current })

	_, err := trail.Append(audit.EntryIngest, "ev-1", "ingested", nil, nil)
	require.NoError(t, err)
	current = day2
	_, err = trail.Append(audit.EntryIngest, "ev-2", "ingested", nil, nil)
	require.NoError(t, err)

	exporter := audit.NewExporter(trail)
	pack, _, err := exporter.GeneratePack(audit.ExportRequest{
		StartTime: day2.Add(-time.Hour),
	})
	require.NoError(t, err)

	r, err := zip.NewReader(bytes.NewReader(pack), int64(len(pack)))
	require.NoError(t, err)
	ef, err := r.Open("entries.json")
	require.NoError(t, err)
	defer ef.Close()
	var entries []audit.Entry
	require.NoError(t, json.NewDecoder(ef).Decode(&entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "ev-2", entries[0].Subject)
}

func TestExporterRejectsInvertedRange(t *testing.T) {
	exporter := audit.NewExporter(audit.NewTrail())
	_, _, err := exporter.GeneratePack(audit.ExportRequest{
		StartTime: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, audit.ErrInvalidTimeRange)
}

func TestExporterFailClosedWithoutTrail(t *testing.T) {
	exporter := audit.NewExporter(nil)
	_, _, err := exporter.GeneratePack(audit.ExportRequest{})
	assert.ErrorIs(t, err, audit.ErrTrailNotConfigured)
}
