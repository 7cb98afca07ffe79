//go:build property
// +build property

// Package index_test contains property-based tests for progress
// normalization and the harmonic mean.
package index_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/Vantage-Labs/vantage/core/pkg/contracts"
	"github.com/Vantage-Labs/vantage/core/pkg/index"
)

// TestProgressClampRange verifies normalized progress always lands in
// [0,1] for any metric reading.
func TestProgressClampRange(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("progress stays in [0,1]", prop.ForAll(
		func(current, baseline, target float64) bool {
			if baseline == target {
				_, err := index.SignpostProgress(current, baseline, target, contracts.DirectionIncreasing)
				return err != nil
			}
			p, err := index.SignpostProgress(current, baseline, target, contracts.DirectionIncreasing)
			if err != nil {
				return false
			}
			return p >= 0 && p <= 1
		},
		gen.Float64Range(-1e6, 1e6),
		gen.Float64Range(-1e6, 1e6),
		gen.Float64Range(-1e6, 1e6),
	))

	properties.TestingRun(t)
}

// TestProgressMonotonicInCurrent verifies the increasing direction never
// reports less progress for a larger metric value.
func TestProgressMonotonicInCurrent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("more metric, no less progress", prop.ForAll(
		func(a, b float64) bool {
			lo, hi := a, b
			if lo > hi {
				lo, hi = hi, lo
			}
			pLo, err1 := index.SignpostProgress(lo, 0, 100, contracts.DirectionIncreasing)
			pHi, err2 := index.SignpostProgress(hi, 0, 100, contracts.DirectionIncreasing)
			if err1 != nil || err2 != nil {
				return false
			}
			return pHi >= pLo
		},
		gen.Float64Range(-1e4, 1e4),
		gen.Float64Range(-1e4, 1e4),
	))

	properties.TestingRun(t)
}
