package index

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vantage-Labs/vantage/core/pkg/audit"
	"github.com/Vantage-Labs/vantage/core/pkg/contracts"
	"github.com/Vantage-Labs/vantage/core/pkg/invalidate"
	"github.com/Vantage-Labs/vantage/core/pkg/signpost"
	"github.com/Vantage-Labs/vantage/core/pkg/store"
)

const testManifest = `
signposts:
  - code: SP-COMPUTE
    version: 1.0.0
    category: compute_scale
    direction: increasing
    baseline: 0
    target: 1
    current: 0.6
  - code: SP-AGENT
    version: 1.0.0
    category: agentic_autonomy
    direction: increasing
    baseline: 0
    target: 1
    current: 0.4
  - code: SP-INTERP
    version: 1.0.0
    category: safety_technique
    direction: increasing
    baseline: 0
    target: 1
    current: 0.3
  - code: SP-GOV
    version: 1.0.0
    category: governance_control
    direction: increasing
    baseline: 0
    target: 1
    current: 0.7
`

func testWeights() contracts.WeightConfig {
	return contracts.WeightConfig{Version: "v1"}
}

func testAggregator(t *testing.T, s store.Store) *Aggregator {
	t.Helper()
	reg := signpost.NewRegistry()
	require.NoError(t, reg.Load([]byte(testManifest)))
	day := time.Date(2026, 5, 10, 9, 30, 0, 0, time.UTC)
	return NewAggregator(s, reg, audit.NewTrail(), invalidate.Noop{}, nil).
		WithClock(func() time.Time { return day })
}

func TestAggregator_ComputeIndex(t *testing.T) {
	s := store.NewMemoryStore()
	a := testAggregator(t, s)
	ctx := context.Background()
	asOf := time.Date(2026, 5, 10, 9, 30, 0, 0, time.UTC)

	snap, err := a.ComputeIndex(ctx, asOf, testWeights())
	require.NoError(t, err)

	// Metric-only run: capability mean(0.6, 0.4) = 0.5, safety
	// mean(0.3, 0.7) = 0.5, harmonic mean 0.5 scaled to 50.
	assert.InDelta(t, 0.5, snap.CapabilityComposite, 1e-9)
	assert.InDelta(t, 0.5, snap.SafetyComposite, 1e-9)
	assert.InDelta(t, 50.0, snap.Value, 1e-9)
	assert.InDelta(t, 0.0, snap.SafetyMargin, 1e-9)
	assert.Equal(t, time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC), snap.Day)
	require.Len(t, snap.Categories, 4)
	assert.Equal(t, contracts.CategoryComputeScale, snap.Categories[0].Category)
	assert.Equal(t, 1, snap.Categories[0].SignpostCount)
	assert.Equal(t, "v1", snap.Weights.Version)

	// Persisted under the day key.
	stored, err := s.GetIndexSnapshot(ctx, asOf)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.InDelta(t, snap.Value, stored.Value, 1e-9)
}

func TestAggregator_ConfirmedEvidenceLiftsProgress(t *testing.T) {
	s := store.NewMemoryStore()
	a := testAggregator(t, s)
	ctx := context.Background()
	asOf := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.InsertEvent(ctx, &contracts.Event{
		ID: "ev-1", Title: "autonomy milestone", URL: "https://example.com/a",
		Publisher: "LabBlog", SourceType: contracts.SourceOfficial,
		Tier: contracts.TierA, PublishedAt: asOf, DedupHash: "sha256:a", CreatedAt: asOf,
	}))
	require.NoError(t, s.InsertLink(ctx, &contracts.EventSignpostLink{
		ID: "l-1", EventID: "ev-1", SignpostCode: "SP-AGENT",
		Tier: contracts.TierA, Provisional: false, Confidence: 0.95,
		EventDate: asOf, CreatedAt: asOf,
	}))

	snap, err := a.ComputeIndex(ctx, asOf, testWeights())
	require.NoError(t, err)

	// SP-AGENT reads max(0.4 metric, 0.95 evidence) = 0.95, so
	// capability = (0.6 + 0.95) / 2 = 0.775 while safety stays 0.5.
	assert.InDelta(t, 0.775, snap.CapabilityComposite, 1e-9)
	assert.InDelta(t, 0.5, snap.SafetyComposite, 1e-9)
	assert.InDelta(t, 2*0.775*0.5/1.275*100, snap.Value, 1e-9)
	assert.InDelta(t, -0.275, snap.SafetyMargin, 1e-9)
}

func TestAggregator_ProvisionalAndTierCExcluded(t *testing.T) {
	s := store.NewMemoryStore()
	a := testAggregator(t, s)
	ctx := context.Background()
	asOf := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.InsertEvent(ctx, &contracts.Event{
		ID: "ev-b", Title: "rumor", URL: "https://example.com/b",
		Publisher: "Forum", SourceType: contracts.SourceSocial,
		Tier: contracts.TierB, PublishedAt: asOf, DedupHash: "sha256:b", CreatedAt: asOf,
	}))
	require.NoError(t, s.InsertLink(ctx, &contracts.EventSignpostLink{
		ID: "l-b", EventID: "ev-b", SignpostCode: "SP-AGENT",
		Tier: contracts.TierB, Provisional: true, Confidence: 0.9,
		EventDate: asOf, CreatedAt: asOf,
	}))
	require.NoError(t, s.InsertEvent(ctx, &contracts.Event{
		ID: "ev-c", Title: "thread", URL: "https://example.com/c",
		Publisher: "Forum", SourceType: contracts.SourceSocial,
		Tier: contracts.TierC, PublishedAt: asOf, DedupHash: "sha256:c", CreatedAt: asOf,
	}))
	require.NoError(t, s.InsertLink(ctx, &contracts.EventSignpostLink{
		ID: "l-c", EventID: "ev-c", SignpostCode: "SP-AGENT",
		Tier: contracts.TierC, Provisional: false, Confidence: 0.99,
		EventDate: asOf, CreatedAt: asOf,
	}))

	snap, err := a.ComputeIndex(ctx, asOf, testWeights())
	require.NoError(t, err)

	// Neither link qualifies, so the metric value carries.
	assert.InDelta(t, 0.5, snap.CapabilityComposite, 1e-9)
}

func TestAggregator_RejectsBadWeights(t *testing.T) {
	s := store.NewMemoryStore()
	a := testAggregator(t, s)
	ctx := context.Background()
	asOf := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		weights contracts.WeightConfig
	}{
		{"missing version", contracts.WeightConfig{}},
		{"negative signpost weight", contracts.WeightConfig{
			Version: "v1", Signposts: map[string]float64{"SP-COMPUTE": -1},
		}},
		{"unknown category", contracts.WeightConfig{
			Version:    "v1",
			Categories: map[contracts.SignpostCategory]float64{"vibes": 1},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := a.ComputeIndex(ctx, asOf, tc.weights)
			assert.ErrorIs(t, err, contracts.ErrUndefinedAggregation)
		})
	}

	// Nothing was written for the day.
	stored, err := s.GetIndexSnapshot(ctx, asOf)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestAggregator_AllZeroSignpostWeightsAbort(t *testing.T) {
	s := store.NewMemoryStore()
	a := testAggregator(t, s)
	ctx := context.Background()
	asOf := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)

	weights := testWeights()
	weights.Signposts = map[string]float64{"SP-COMPUTE": 0}

	_, err := a.ComputeIndex(ctx, asOf, weights)
	assert.ErrorIs(t, err, contracts.ErrUndefinedAggregation)

	stored, err := s.GetIndexSnapshot(ctx, asOf)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestAggregator_RerunReplacesDay(t *testing.T) {
	s := store.NewMemoryStore()
	reg := signpost.NewRegistry()
	require.NoError(t, reg.Load([]byte(testManifest)))
	a := NewAggregator(s, reg, audit.NewTrail(), invalidate.Noop{}, nil)
	ctx := context.Background()
	asOf := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)

	_, err := a.ComputeIndex(ctx, asOf, testWeights())
	require.NoError(t, err)

	require.NoError(t, reg.UpdateMetric("SP-INTERP", 0.9))
	snap, err := a.ComputeIndex(ctx, asOf.Add(4*time.Hour), testWeights())
	require.NoError(t, err)

	stored, err := s.GetIndexSnapshot(ctx, asOf)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.InDelta(t, snap.Value, stored.Value, 1e-9)
	assert.InDelta(t, 0.8, stored.SafetyComposite, 1e-9)
}
