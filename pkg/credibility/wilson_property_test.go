//go:build property
// +build property

// Package credibility_test contains property-based tests for the Wilson
// lower bound.
package credibility_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/Vantage-Labs/vantage/core/pkg/credibility"
)

const z95 = 1.959964

// TestWilsonBoundRange verifies the bound always lands in [0,1] and
// never exceeds the point estimate.
func TestWilsonBoundRange(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("bound stays in [0,1] and below the point estimate", prop.ForAll(
		func(successes, extra int) bool {
			trials := successes + extra
			if trials == 0 {
				return credibility.WilsonLowerBound(0, 0, z95) == 0
			}
			bound := credibility.WilsonLowerBound(successes, trials, z95)
			pHat := float64(successes) / float64(trials)
			return bound >= 0 && bound <= 1 && bound <= pHat
		},
		gen.IntRange(0, 5000),
		gen.IntRange(0, 5000),
	))

	properties.TestingRun(t)
}

// TestWilsonBoundMonotonicInTrials verifies that at a fixed success
// rate, more observations tighten the bound upward: a publisher with a
// longer clean record is never scored below a shorter one.
func TestWilsonBoundMonotonicInTrials(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("perfect record improves with sample size", prop.ForAll(
		func(trials int) bool {
			smaller := credibility.WilsonLowerBound(trials, trials, z95)
			larger := credibility.WilsonLowerBound(trials*2, trials*2, z95)
			return larger >= smaller
		},
		gen.IntRange(1, 10000),
	))

	properties.TestingRun(t)
}
