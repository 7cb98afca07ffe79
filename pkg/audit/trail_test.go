package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrail_AppendAndChain(t *testing.T) {
	trail := NewTrail()

	e1, err := trail.Append(EntryIngest, "ev-1", "ingested", map[string]string{"publisher": "TechWire"}, nil)
	require.NoError(t, err)
	e2, err := trail.Append(EntryLinkCreated, "l-1", "linked", nil, nil)
	require.NoError(t, err)
	e3, err := trail.Append(EntryPromotion, "l-1", "promoted", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "genesis", e1.PreviousHash)
	assert.Equal(t, e1.EntryHash, e2.PreviousHash)
	assert.Equal(t, e2.EntryHash, e3.PreviousHash)
	assert.Equal(t, e3.EntryHash, trail.ChainHead())
	assert.Equal(t, 3, trail.Len())

	require.NoError(t, trail.VerifyChain())
}

func TestTrail_VerifyChain_DetectsTampering(t *testing.T) {
	trail := NewTrail()
	_, err := trail.Append(EntryIngest, "ev-1", "ingested", nil, nil)
	require.NoError(t, err)
	e2, err := trail.Append(EntryRetraction, "ev-1", "retracted", nil, nil)
	require.NoError(t, err)

	e2.Action = "rewritten"
	assert.ErrorIs(t, trail.VerifyChain(), ErrChainBroken)
}

func TestTrail_BySubject(t *testing.T) {
	trail := NewTrail().WithClock(func() time.Time {
		return time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	})
	_, _ = trail.Append(EntryIngest, "ev-1", "ingested", nil, nil)
	_, _ = trail.Append(EntryIngest, "ev-2", "ingested", nil, nil)
	_, _ = trail.Append(EntryRetraction, "ev-1", "retracted", nil, nil)

	entries := trail.BySubject("ev-1")
	require.Len(t, entries, 2)
	assert.Equal(t, EntryIngest, entries[0].EntryType)
	assert.Equal(t, EntryRetraction, entries[1].EntryType)
}

func TestTrail_Get(t *testing.T) {
	trail := NewTrail()
	e, err := trail.Append(EntrySnapshot, "2026-05-10", "index_written", nil, nil)
	require.NoError(t, err)

	got, err := trail.Get(e.EntryID)
	require.NoError(t, err)
	assert.Equal(t, e.EntryHash, got.EntryHash)

	_, err = trail.Get("missing")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}
