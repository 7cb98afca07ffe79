// Package corroborate runs the scheduled pass that promotes provisional
// tier-B links once an independent tier-A link lands on the same
// signpost within the corroboration window. Promotion is one-way and
// idempotent: the store's conditional update is the only writer that
// flips a link out of provisional.
package corroborate

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Vantage-Labs/vantage/core/pkg/audit"
	"github.com/Vantage-Labs/vantage/core/pkg/contracts"
	"github.com/Vantage-Labs/vantage/core/pkg/invalidate"
	"github.com/Vantage-Labs/vantage/core/pkg/store"
)

// Promotion tuning. The boost rewards corroborated evidence without ever
// letting a promoted link reach certainty.
const (
	DefaultWindow   = 14 * 24 * time.Hour
	ConfidenceBoost = 0.10
	ConfidenceCap   = 0.95
)

// Result summarizes one corroboration pass.
type Result struct {
	Scanned  int `json:"scanned"`
	Promoted int `json:"promoted"`
	// StillProvisional lists links whose window has fully elapsed with no
	// corroborating tier-A evidence. They stay tier B at their original
	// confidence; surfacing them here is what feeds the review queue.
	StillProvisional []string `json:"still_provisional,omitempty"`
	// Failures carries per-link scan errors. One broken candidate never
	// aborts the pass.
	Failures []error `json:"-"`
}

// Promoter scans provisional links and promotes the corroborated ones.
type Promoter struct {
	store       store.Store
	trail       *audit.Trail
	invalidator invalidate.Invalidator
	logger      *slog.Logger
	clock       func() time.Time
	window      time.Duration

	mu            sync.Mutex
	signpostLocks map[string]*sync.Mutex
}

// NewPromoter creates a promoter with the default 14-day window.
func NewPromoter(s store.Store, trail *audit.Trail, inv invalidate.Invalidator) *Promoter {
	return &Promoter{
		store:         s,
		trail:         trail,
		invalidator:   inv,
		logger:        slog.Default().With("component", "corroborate"),
		clock:         time.Now,
		window:        DefaultWindow,
		signpostLocks: make(map[string]*sync.Mutex),
	}
}

// WithClock overrides the clock for deterministic testing.
func (p *Promoter) WithClock(clock func() time.Time) *Promoter {
	p.clock = clock
	return p
}

// WithWindow overrides the corroboration window.
func (p *Promoter) WithWindow(window time.Duration) *Promoter {
	p.window = window
	return p
}

// RunPass evaluates every provisional tier-B link once. Candidates are
// grouped per signpost and each group is serialized under its own lock,
// so two overlapping passes cannot double-apply a boost even before the
// store's conditional update is reached.
func (p *Promoter) RunPass(ctx context.Context) (Result, error) {
	var res Result

	candidates, err := p.store.ListProvisional(ctx)
	if err != nil {
		return res, err
	}
	res.Scanned = len(candidates)

	bySignpost := make(map[string][]*contracts.EventSignpostLink)
	for _, link := range candidates {
		bySignpost[link.SignpostCode] = append(bySignpost[link.SignpostCode], link)
	}

	now := p.clock().UTC()
	for code, group := range bySignpost {
		lock := p.signpostLock(code)
		lock.Lock()
		for _, link := range group {
			promoted, err := p.evaluate(ctx, link)
			if err != nil {
				res.Failures = append(res.Failures, &contracts.CorroborationScanError{LinkID: link.ID, Err: err})
				p.logger.WarnContext(ctx, "corroboration scan failed",
					"link_id", link.ID, "signpost", code, "error", err)
				continue
			}
			if promoted {
				res.Promoted++
				continue
			}
			if now.Sub(link.EventDate) > p.window {
				res.StillProvisional = append(res.StillProvisional, link.ID)
			}
		}
		lock.Unlock()
	}
	sort.Strings(res.StillProvisional)

	p.logger.InfoContext(ctx, "corroboration pass finished",
		"scanned", res.Scanned, "promoted", res.Promoted,
		"still_provisional", len(res.StillProvisional), "failures", len(res.Failures))
	return res, nil
}

// evaluate checks one candidate for corroboration and promotes it if a
// qualifying tier-A link exists. Returns whether this call promoted.
func (p *Promoter) evaluate(ctx context.Context, link *contracts.EventSignpostLink) (bool, error) {
	corroborated, err := p.store.HasCorroboration(ctx, link.SignpostCode, link.EventDate, p.window)
	if err != nil {
		return false, err
	}
	if !corroborated {
		return false, nil
	}

	promoted, err := p.store.PromoteLink(ctx, link.ID, ConfidenceBoost, ConfidenceCap)
	if err != nil {
		return false, err
	}
	if !promoted {
		// A concurrent pass got there first; the link is confirmed either way.
		return false, nil
	}

	if _, err := p.trail.Append(audit.EntryPromotion, link.ID, "promoted", link, map[string]string{
		"signpost": link.SignpostCode,
	}); err != nil {
		p.logger.WarnContext(ctx, "audit append failed", "link_id", link.ID, "error", err)
	}
	if err := p.invalidator.LinksChanged(ctx, link.SignpostCode); err != nil {
		p.logger.WarnContext(ctx, "invalidation publish failed",
			"signpost", link.SignpostCode, "error", err)
	}

	p.logger.InfoContext(ctx, "link promoted",
		"link_id", link.ID, "signpost", link.SignpostCode, "event_date", link.EventDate)
	return true, nil
}

func (p *Promoter) signpostLock(code string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.signpostLocks[code]
	if !ok {
		lock = &sync.Mutex{}
		p.signpostLocks[code] = lock
	}
	return lock
}
