package index

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Vantage-Labs/vantage/core/pkg/archive"
	"github.com/Vantage-Labs/vantage/core/pkg/audit"
	"github.com/Vantage-Labs/vantage/core/pkg/contracts"
	"github.com/Vantage-Labs/vantage/core/pkg/invalidate"
	"github.com/Vantage-Labs/vantage/core/pkg/signpost"
	"github.com/Vantage-Labs/vantage/core/pkg/store"
)

// categoryOrder fixes the breakdown order in snapshots.
var categoryOrder = []contracts.SignpostCategory{
	contracts.CategoryCapabilityBenchmark,
	contracts.CategoryComputeScale,
	contracts.CategoryAgenticAutonomy,
	contracts.CategoryDeploymentReach,
	contracts.CategorySafetyTechnique,
	contracts.CategorySecurityHardening,
	contracts.CategoryAlignmentEvaluation,
	contracts.CategoryGovernanceControl,
}

// Aggregator computes and persists daily progress index snapshots.
type Aggregator struct {
	store       store.Store
	registry    *signpost.Registry
	trail       *audit.Trail
	invalidator invalidate.Invalidator
	archiver    archive.Archiver // nil disables archiving
	logger      *slog.Logger
	clock       func() time.Time
}

// NewAggregator wires an aggregator. Pass a nil archiver to skip the
// archive upload.
func NewAggregator(s store.Store, reg *signpost.Registry, trail *audit.Trail, inv invalidate.Invalidator, arch archive.Archiver) *Aggregator {
	return &Aggregator{
		store:       s,
		registry:    reg,
		trail:       trail,
		invalidator: inv,
		archiver:    arch,
		logger:      slog.Default().With("component", "index"),
		clock:       time.Now,
	}
}

// WithClock overrides the clock for deterministic testing.
func (a *Aggregator) WithClock(clock func() time.Time) *Aggregator {
	a.clock = clock
	return a
}

// ComputeIndex builds the snapshot for the UTC day of asOf under the
// given weights and upserts it. A definition or weight problem aborts
// the whole computation with nothing written; only a fully-formed
// snapshot ever reaches storage.
//
// Per-signpost progress is the maximum of the metric-derived progress
// and the best confidence among confirmed evidence links, so a promoted
// link can move the index before benchmark numbers catch up. Tier-C and
// unpromoted tier-B links are never read.
func (a *Aggregator) ComputeIndex(ctx context.Context, asOf time.Time, weights contracts.WeightConfig) (*contracts.ProgressIndexSnapshot, error) {
	if err := ValidateWeights(weights); err != nil {
		return nil, err
	}
	lookup := weightLookup{cfg: weights}

	byCategory := make(map[contracts.SignpostCategory][]float64)
	catWeights := make(map[contracts.SignpostCategory][]float64)
	for _, sp := range a.registry.All() {
		p, err := a.signpostProgress(ctx, sp)
		if err != nil {
			return nil, fmt.Errorf("signpost %s: %w", sp.Code, err)
		}
		byCategory[sp.Category] = append(byCategory[sp.Category], p)
		catWeights[sp.Category] = append(catWeights[sp.Category], lookup.signpost(sp.Code))
	}

	var breakdown []contracts.CategoryScore
	var capScores, capWs, safScores, safWs []float64
	for _, cat := range categoryOrder {
		values, ok := byCategory[cat]
		if !ok {
			continue
		}
		score, err := weightedMean(values, catWeights[cat])
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", cat, err)
		}
		breakdown = append(breakdown, contracts.CategoryScore{
			Category:      cat,
			Composite:     cat.Composite(),
			Score:         score,
			SignpostCount: len(values),
		})
		if cat.Composite() == contracts.CompositeCapability {
			capScores = append(capScores, score)
			capWs = append(capWs, lookup.category(cat))
		} else {
			safScores = append(safScores, score)
			safWs = append(safWs, lookup.category(cat))
		}
	}

	capability, err := compositeMean(capScores, capWs)
	if err != nil {
		return nil, fmt.Errorf("capability composite: %w", err)
	}
	safety, err := compositeMean(safScores, safWs)
	if err != nil {
		return nil, fmt.Errorf("safety composite: %w", err)
	}

	snap := &contracts.ProgressIndexSnapshot{
		Day:                 store.DayOf(asOf),
		Value:               harmonicMean(capability, safety) * 100,
		CapabilityComposite: capability,
		SafetyComposite:     safety,
		SafetyMargin:        safety - capability,
		Categories:          breakdown,
		Weights:             weights,
		CreatedAt:           a.clock().UTC(),
	}

	if err := a.store.UpsertIndexSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("index snapshot upsert failed: %w", err)
	}

	day := snap.Day.Format("2006-01-02")
	if _, err := a.trail.Append(audit.EntrySnapshot, day, "index_computed", snap, map[string]string{
		"weights_version": weights.Version,
	}); err != nil {
		a.logger.WarnContext(ctx, "audit append failed", "day", day, "error", err)
	}
	if err := a.invalidator.IndexChanged(ctx, snap.Day); err != nil {
		a.logger.WarnContext(ctx, "invalidation publish failed", "day", day, "error", err)
	}
	a.archiveSnapshot(ctx, day, snap)

	a.logger.InfoContext(ctx, "progress index computed",
		"day", day, "value", snap.Value, "safety_margin", snap.SafetyMargin)
	return snap, nil
}

// signpostProgress merges the metric reading with confirmed evidence.
func (a *Aggregator) signpostProgress(ctx context.Context, sp *contracts.Signpost) (float64, error) {
	p, err := SignpostProgress(sp.Current, sp.Baseline, sp.Target, sp.Direction)
	if err != nil {
		return 0, err
	}

	links, err := a.store.ListConfirmedBySignpost(ctx, sp.Code)
	if err != nil {
		return 0, fmt.Errorf("confirmed links read failed: %w", err)
	}
	for _, link := range links {
		if c := clamp01(link.Confidence); c > p {
			p = c
		}
	}
	return p, nil
}

// compositeMean is a weighted mean that treats an empty side as 0
// instead of undefined: no registered signposts on one side is missing
// observation, not a configuration error.
func compositeMean(scores, weights []float64) (float64, error) {
	if len(scores) == 0 {
		return 0, nil
	}
	return weightedMean(scores, weights)
}

func (a *Aggregator) archiveSnapshot(ctx context.Context, day string, snap *contracts.ProgressIndexSnapshot) {
	if a.archiver == nil {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		a.logger.WarnContext(ctx, "snapshot serialization for archive failed", "day", day, "error", err)
		return
	}
	if err := a.archiver.Put(ctx, archive.IndexKey(day), data); err != nil {
		a.logger.WarnContext(ctx, "snapshot archive failed", "day", day, "error", err)
	}
}
