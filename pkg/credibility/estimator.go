package credibility

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/Vantage-Labs/vantage/core/pkg/contracts"
	"github.com/Vantage-Labs/vantage/core/pkg/store"
)

// z95 is the normal quantile for a 95% Wilson interval.
const z95 = 1.959964

// Estimator produces the daily per-publisher credibility snapshots
// from retraction history. The score is the lower bound of the Wilson
// interval on the non-retraction rate, not the point estimate: one
// clean article is weak evidence of reliability, and the bound says so.
type Estimator struct {
	store  store.Store
	policy Policy
	logger *slog.Logger
	clock  func() time.Time
}

// NewEstimator creates an estimator with the given policy thresholds.
func NewEstimator(s store.Store, policy Policy) *Estimator {
	return &Estimator{
		store:  s,
		policy: policy,
		logger: slog.Default().With("component", "credibility"),
		clock:  time.Now,
	}
}

// WithClock overrides the clock for deterministic testing.
func (e *Estimator) WithClock(clock func() time.Time) *Estimator {
	e.clock = clock
	return e
}

// ComputeSnapshot scores one publisher for one UTC day and upserts the
// (publisher, day) row: a re-run with updated data replaces the day's
// row instead of duplicating or failing. A publisher with zero articles
// has no defined score; the snapshot is not produced.
func (e *Estimator) ComputeSnapshot(ctx context.Context, publisher string, day time.Time) (*contracts.SourceCredibilitySnapshot, error) {
	total, retracted, err := e.store.CountArticles(ctx, publisher, day)
	if err != nil {
		return nil, fmt.Errorf("article count failed: %w", err)
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: publisher %q has no articles on %s",
			contracts.ErrUndefinedAggregation, publisher, store.DayOf(day).Format("2006-01-02"))
	}

	score := WilsonLowerBound(total-retracted, total, z95)
	snap := &contracts.SourceCredibilitySnapshot{
		Publisher:        publisher,
		Day:              store.DayOf(day),
		TotalArticles:    total,
		RetractedCount:   retracted,
		RetractionRate:   float64(retracted) / float64(total),
		CredibilityScore: score,
		CredibilityTier:  e.policy.gradePublisher(score),
		CreatedAt:        e.clock().UTC(),
	}

	if err := e.store.UpsertCredibilitySnapshot(ctx, snap); err != nil {
		return nil, err
	}
	e.logger.InfoContext(ctx, "publisher snapshot written",
		"publisher", publisher, "day", snap.Day.Format("2006-01-02"),
		"score", score, "tier", string(snap.CredibilityTier))
	return snap, nil
}

// WilsonLowerBound returns the lower bound of the Wilson score interval
// for successes out of trials at quantile z. It is always within [0,1]
// and never exceeds the point estimate successes/trials; as trials
// shrink the bound shrinks toward zero, penalizing small samples.
func WilsonLowerBound(successes, trials int, z float64) float64 {
	if trials <= 0 {
		return 0
	}
	n := float64(trials)
	pHat := float64(successes) / n
	z2 := z * z

	denom := 1 + z2/n
	center := pHat + z2/(2*n)
	margin := z * math.Sqrt(pHat*(1-pHat)/n+z2/(4*n*n))

	lower := (center - margin) / denom
	if lower < 0 {
		return 0
	}
	if lower > 1 {
		return 1
	}
	return lower
}
