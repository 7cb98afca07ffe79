package signpost

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vantage-Labs/vantage/core/pkg/contracts"
)

const validManifest = `
version: "2026.05"
signposts:
  - code: SP-COMPUTE-1E27
    version: 1.2.0
    title: Frontier training run above 1e27 FLOP
    category: compute_scale
    direction: increasing
    baseline: 25.0
    target: 27.0
    current: 26.1
  - code: SP-INTERP-COVERAGE
    version: 1.0.0
    title: Interpretability coverage of frontier model circuits
    category: safety_technique
    direction: increasing
    baseline: 0.0
    target: 0.8
    current: 0.15
    forecast_confidence: 0.35
`

func TestRegistry_Load(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Load([]byte(validManifest)))

	sp, err := r.Get("SP-COMPUTE-1E27")
	require.NoError(t, err)
	assert.Equal(t, contracts.CategoryComputeScale, sp.Category)
	assert.Equal(t, contracts.DirectionIncreasing, sp.Direction)
	assert.Equal(t, 26.1, sp.Current)
	assert.Nil(t, sp.ForecastConfidence)

	interp, err := r.Get("SP-INTERP-COVERAGE")
	require.NoError(t, err)
	require.NotNil(t, interp.ForecastConfidence)
	assert.Equal(t, 0.35, *interp.ForecastConfidence)

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, "SP-COMPUTE-1E27", all[0].Code)

	safety := r.ByCategory(contracts.CategorySafetyTechnique)
	require.Len(t, safety, 1)
	assert.Equal(t, "SP-INTERP-COVERAGE", safety[0].Code)
}

func TestRegistry_LoadRejectsBadManifests(t *testing.T) {
	cases := []struct {
		name     string
		manifest string
		want     error
	}{
		{
			"unknown category",
			"signposts:\n  - {code: X, version: 1.0.0, category: vibes, direction: increasing, baseline: 0, target: 1}\n",
			ErrManifestInvalid,
		},
		{
			"bad direction",
			"signposts:\n  - {code: X, version: 1.0.0, category: compute_scale, direction: sideways, baseline: 0, target: 1}\n",
			ErrManifestInvalid,
		},
		{
			"bad semver",
			"signposts:\n  - {code: X, version: not-a-version, category: compute_scale, direction: increasing, baseline: 0, target: 1}\n",
			ErrManifestInvalid,
		},
		{
			"baseline equals target",
			"signposts:\n  - {code: X, version: 1.0.0, category: compute_scale, direction: increasing, baseline: 5, target: 5}\n",
			ErrManifestInvalid,
		},
		{
			"duplicate code",
			"signposts:\n" +
				"  - {code: X, version: 1.0.0, category: compute_scale, direction: increasing, baseline: 0, target: 1}\n" +
				"  - {code: X, version: 1.0.1, category: compute_scale, direction: increasing, baseline: 0, target: 2}\n",
			ErrDuplicateCode,
		},
		{
			"empty code",
			"signposts:\n  - {version: 1.0.0, category: compute_scale, direction: increasing, baseline: 0, target: 1}\n",
			ErrManifestInvalid,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewRegistry()
			err := r.Load([]byte(tc.manifest))
			assert.ErrorIs(t, err, tc.want)
			// Nothing from a rejected manifest is visible.
			assert.Empty(t, r.All())
		})
	}
}

func TestRegistry_UpdateMetric(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	r := NewRegistry().WithClock(func() time.Time { return now })
	require.NoError(t, r.Load([]byte(validManifest)))

	require.NoError(t, r.UpdateMetric("SP-COMPUTE-1E27", 26.8))
	sp, err := r.Get("SP-COMPUTE-1E27")
	require.NoError(t, err)
	assert.Equal(t, 26.8, sp.Current)

	ts, ok := r.UpdatedAt("SP-COMPUTE-1E27")
	require.True(t, ok)
	assert.Equal(t, now, ts)

	assert.ErrorIs(t, r.UpdateMetric("SP-UNKNOWN", 1), contracts.ErrSignpostNotFound)
}

func TestRegistry_GetReturnsCopy(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Load([]byte(validManifest)))

	sp, err := r.Get("SP-COMPUTE-1E27")
	require.NoError(t, err)
	sp.Current = 99

	again, err := r.Get("SP-COMPUTE-1E27")
	require.NoError(t, err)
	assert.Equal(t, 26.1, again.Current)
}
