package credibility

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vantage-Labs/vantage/core/pkg/audit"
	"github.com/Vantage-Labs/vantage/core/pkg/contracts"
	"github.com/Vantage-Labs/vantage/core/pkg/store"
)

func linkEvent(src contracts.SourceType, tier contracts.Tier) *contracts.Event {
	return &contracts.Event{
		ID:          uuid.New().String(),
		Title:       "test event",
		URL:         "https://example.com/" + uuid.New().String(),
		Publisher:   "TechWire",
		SourceType:  src,
		Tier:        tier,
		PublishedAt: time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC),
	}
}

func TestAssigner_TierPolicy(t *testing.T) {
	a := NewAssigner(store.NewMemoryStore(), audit.NewTrail(), DefaultPolicy())
	ctx := context.Background()

	cases := []struct {
		name            string
		src             contracts.SourceType
		eventTier       contracts.Tier
		wantTier        contracts.Tier
		wantProvisional bool
		minConf         float64
		maxConf         float64
	}{
		{"official is confirmed A", contracts.SourceOfficial, contracts.TierA, contracts.TierA, false, 0.8, 0.95},
		{"benchmark is confirmed A", contracts.SourceBenchmark, contracts.TierA, contracts.TierA, false, 0.8, 0.95},
		{"press is provisional B", contracts.SourcePress, contracts.TierB, contracts.TierB, true, 0.5, 0.7},
		{"blog is provisional B", contracts.SourceBlog, contracts.TierB, contracts.TierB, true, 0.5, 0.7},
		{"social is C", contracts.SourceSocial, contracts.TierC, contracts.TierC, false, 0, 0.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			link, err := a.AssignLink(ctx, linkEvent(tc.src, tc.eventTier), "agentic-swe-week")
			require.NoError(t, err)
			assert.Equal(t, tc.wantTier, link.Tier)
			assert.Equal(t, tc.wantProvisional, link.Provisional)
			assert.GreaterOrEqual(t, link.Confidence, tc.minConf)
			assert.LessOrEqual(t, link.Confidence, tc.maxConf)
			assert.Less(t, link.Confidence, 1.0)
		})
	}
}

func TestAssigner_EventTierCapsLinkTier(t *testing.T) {
	a := NewAssigner(store.NewMemoryStore(), audit.NewTrail(), DefaultPolicy())

	// Benchmark source type would be tier A, but the event itself was
	// reported as tier B evidence; the link is capped at B.
	link, err := a.AssignLink(context.Background(), linkEvent(contracts.SourceBenchmark, contracts.TierB), "compute-10e27")
	require.NoError(t, err)
	assert.Equal(t, contracts.TierB, link.Tier)
	assert.True(t, link.Provisional)
}

func TestAssigner_RetractedEventLinksAtC(t *testing.T) {
	a := NewAssigner(store.NewMemoryStore(), audit.NewTrail(), DefaultPolicy())

	ev := linkEvent(contracts.SourceOfficial, contracts.TierA)
	ev.Retracted = true
	link, err := a.AssignLink(context.Background(), ev, "agentic-swe-week")
	require.NoError(t, err)
	assert.Equal(t, contracts.TierC, link.Tier)
	assert.False(t, link.Confirmed())
}

func TestAssigner_DuplicatePair(t *testing.T) {
	a := NewAssigner(store.NewMemoryStore(), audit.NewTrail(), DefaultPolicy())
	ctx := context.Background()

	ev := linkEvent(contracts.SourcePress, contracts.TierB)
	_, err := a.AssignLink(ctx, ev, "agentic-swe-week")
	require.NoError(t, err)

	_, err = a.AssignLink(ctx, ev, "agentic-swe-week")
	assert.ErrorIs(t, err, contracts.ErrDuplicateLink)

	// A different signpost for the same event is a new pair.
	_, err = a.AssignLink(ctx, ev, "compute-10e27")
	require.NoError(t, err)
}

func TestPolicy_Validate(t *testing.T) {
	p := DefaultPolicy()
	require.NoError(t, p.Validate())

	bad := DefaultPolicy()
	bad.TierBySource[contracts.SourcePress] = "Z"
	assert.Error(t, bad.Validate())

	bad = DefaultPolicy()
	bad.ConfidenceBySource[contracts.SourcePress] = 1.0 // certainty is disallowed
	assert.Error(t, bad.Validate())

	bad = DefaultPolicy()
	bad.PublisherTiers = []TierThreshold{{Min: 1.2, Tier: contracts.TierA}}
	assert.Error(t, bad.Validate())
}
