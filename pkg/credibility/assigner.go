package credibility

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Vantage-Labs/vantage/core/pkg/audit"
	"github.com/Vantage-Labs/vantage/core/pkg/contracts"
	"github.com/Vantage-Labs/vantage/core/pkg/store"
)

// Assigner classifies event↔signpost links into a tier and initial
// confidence. Tier A evidence is confirmed on arrival; tier B starts
// provisional and waits for corroboration; tier C is kept for audit
// but never read by the aggregator.
type Assigner struct {
	store  store.Store
	trail  *audit.Trail
	policy Policy
	logger *slog.Logger
	clock  func() time.Time
}

// NewAssigner creates an assigner with the given policy.
func NewAssigner(s store.Store, trail *audit.Trail, policy Policy) *Assigner {
	return &Assigner{
		store:  s,
		trail:  trail,
		policy: policy,
		logger: slog.Default().With("component", "credibility"),
		clock:  time.Now,
	}
}

// WithClock overrides the clock for deterministic testing.
func (a *Assigner) WithClock(clock func() time.Time) *Assigner {
	a.clock = clock
	return a
}

// AssignLink creates the scored link between an event and a signpost.
// Creation is idempotent per (event, signpost) pair: a second call
// returns contracts.ErrDuplicateLink, which callers treat as success.
func (a *Assigner) AssignLink(ctx context.Context, ev *contracts.Event, signpostCode string) (*contracts.EventSignpostLink, error) {
	if ev == nil || ev.ID == "" {
		return nil, fmt.Errorf("cannot link: event missing")
	}
	if signpostCode == "" {
		return nil, fmt.Errorf("cannot link: signpost code missing")
	}

	tier, confidence := a.classify(ev)
	link := &contracts.EventSignpostLink{
		ID:           uuid.New().String(),
		EventID:      ev.ID,
		SignpostCode: signpostCode,
		Tier:         tier,
		Provisional:  tier == contracts.TierB,
		Confidence:   confidence,
		EventDate:    ev.PublishedAt.UTC(),
		CreatedAt:    a.clock().UTC(),
	}

	if err := a.store.InsertLink(ctx, link); err != nil {
		if errors.Is(err, contracts.ErrDuplicateLink) {
			return nil, contracts.ErrDuplicateLink
		}
		return nil, fmt.Errorf("link insert failed: %w", err)
	}

	if _, err := a.trail.Append(audit.EntryLinkCreated, link.ID, "linked", link, map[string]string{
		"event_id": ev.ID, "signpost": signpostCode,
	}); err != nil {
		a.logger.WarnContext(ctx, "audit append failed", "link_id", link.ID, "error", err)
	}

	a.logger.InfoContext(ctx, "link assigned",
		"link_id", link.ID, "signpost", signpostCode,
		"tier", string(tier), "confidence", confidence, "provisional", link.Provisional)
	return link, nil
}

// classify maps an event to the (tier, confidence) of links created
// from it. An event already retracted can still be linked for audit
// purposes but only ever at tier C.
func (a *Assigner) classify(ev *contracts.Event) (contracts.Tier, float64) {
	if ev.Retracted {
		return contracts.TierC, a.confidenceFor(contracts.SourceUnknown)
	}

	tier, ok := a.policy.TierBySource[ev.SourceType]
	if !ok {
		tier = contracts.TierC
	}
	// An event whose own reported tier is weaker than its source type
	// suggests caps the link: a press report of a leaked benchmark run
	// is not tier A just because the source type is benchmark.
	if ev.Tier.Valid() && tier.StrongerThan(ev.Tier) {
		tier = ev.Tier
	}
	return tier, a.confidenceFor(ev.SourceType)
}

func (a *Assigner) confidenceFor(src contracts.SourceType) float64 {
	if conf, ok := a.policy.ConfidenceBySource[src]; ok {
		return conf
	}
	return a.policy.ConfidenceBySource[contracts.SourceUnknown]
}
