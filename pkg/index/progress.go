// Package index turns signpost metrics and confirmed evidence into the
// daily progress index: normalized per-signpost progress, weighted
// category scores, capability and safety composites, and their harmonic
// mean scaled to [0,100].
package index

import (
	"fmt"

	"github.com/Vantage-Labs/vantage/core/pkg/contracts"
)

// SignpostProgress normalizes a raw metric value into [0,1] against the
// signpost's baseline and target. Values beyond the target clamp to 1,
// values at or behind the baseline clamp to 0. A degenerate definition
// with baseline == target has no defined progress.
func SignpostProgress(current, baseline, target float64, dir contracts.Direction) (float64, error) {
	if baseline == target {
		return 0, fmt.Errorf("%w: baseline equals target", contracts.ErrUndefinedAggregation)
	}

	var p float64
	switch dir {
	case contracts.DirectionIncreasing:
		p = (current - baseline) / (target - baseline)
	case contracts.DirectionDecreasing:
		p = (baseline - current) / (baseline - target)
	default:
		return 0, fmt.Errorf("%w: direction %q", contracts.ErrUndefinedAggregation, dir)
	}
	return clamp01(p), nil
}

// weightedMean computes sum(w*v)/sum(w). Weights must be non-negative
// and not all zero.
func weightedMean(values, weights []float64) (float64, error) {
	if len(values) != len(weights) || len(values) == 0 {
		return 0, fmt.Errorf("%w: empty aggregation", contracts.ErrUndefinedAggregation)
	}
	var sum, wsum float64
	for i, w := range weights {
		if w < 0 {
			return 0, fmt.Errorf("%w: negative weight %v", contracts.ErrUndefinedAggregation, w)
		}
		sum += w * values[i]
		wsum += w
	}
	if wsum == 0 {
		return 0, fmt.Errorf("%w: all weights zero", contracts.ErrUndefinedAggregation)
	}
	return sum / wsum, nil
}

// harmonicMean of two scores in [0,1]. Defined as 0 when either input
// is 0, so a total lag on one side zeroes the overall index instead of
// averaging it away.
func harmonicMean(a, b float64) float64 {
	if a+b == 0 {
		return 0
	}
	return 2 * a * b / (a + b)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
