// Package ingest implements the deduplication gate in front of event
// storage. Producers run as independent worker processes; the only
// cross-worker coordination is the store's uniqueness constraints, so
// the gate never does a check-then-insert: it inserts and classifies
// the outcome.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/Vantage-Labs/vantage/core/pkg/audit"
	"github.com/Vantage-Labs/vantage/core/pkg/contracts"
	"github.com/Vantage-Labs/vantage/core/pkg/store"
)

var (
	ErrMissingFingerprint = errors.New("candidate carries no fingerprint")
	ErrInvalidCandidate   = errors.New("candidate is missing required fields")
)

// Candidate is an event payload handed over by a scraper or feed
// fetcher, with fingerprints precomputed by the producer.
type Candidate struct {
	Title       string               `json:"title"`
	URL         string               `json:"url"`
	Publisher   string               `json:"publisher"`
	SourceType  contracts.SourceType `json:"source_type"`
	Tier        contracts.Tier       `json:"tier"`
	PublishedAt time.Time            `json:"published_at"`
	DedupHash   string               `json:"dedup_hash,omitempty"`
	ContentHash string               `json:"content_hash,omitempty"`
}

// Gate validates candidates and inserts them exactly once per
// fingerprint. A duplicate is an expected outcome, returned as
// contracts.ErrDuplicateEvidence for the caller to treat as
// already-ingested, never as a transient failure.
type Gate struct {
	store  store.Store
	trail  *audit.Trail
	logger *slog.Logger
	clock  func() time.Time

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// NewGate creates a gate over the given store. Per-publisher rate
// limiting protects the store from a misbehaving producer flooding one
// feed; zero rps disables limiting.
func NewGate(s store.Store, trail *audit.Trail, rps float64, burst int) *Gate {
	return &Gate{
		store:    s,
		trail:    trail,
		logger:   slog.Default().With("component", "ingest"),
		clock:    time.Now,
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

// WithClock overrides the clock for deterministic testing.
func (g *Gate) WithClock(clock func() time.Time) *Gate {
	g.clock = clock
	return g
}

// Ingest validates and persists one candidate. Outcomes:
//   - nil error: event persisted, caller proceeds to linking
//   - contracts.ErrDuplicateEvidence: already ingested, skip this item
//   - anything else: surfaced storage failure
func (g *Gate) Ingest(ctx context.Context, c Candidate) (*contracts.Event, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	if g.rps > 0 {
		if err := g.limiter(c.Publisher).Wait(ctx); err != nil {
			return nil, fmt.Errorf("ingest rate wait aborted: %w", err)
		}
	}

	now := g.clock().UTC()
	ev := &contracts.Event{
		ID:          uuid.New().String(),
		Title:       c.Title,
		URL:         c.URL,
		Publisher:   c.Publisher,
		SourceType:  c.SourceType,
		Tier:        c.Tier,
		PublishedAt: c.PublishedAt.UTC(),
		DedupHash:   c.DedupHash,
		ContentHash: c.ContentHash,
		CreatedAt:   now,
	}

	if err := g.store.InsertEvent(ctx, ev); err != nil {
		if errors.Is(err, contracts.ErrDuplicateEvidence) {
			g.logger.DebugContext(ctx, "duplicate evidence skipped",
				"publisher", c.Publisher, "dedup_hash", c.DedupHash)
			return nil, contracts.ErrDuplicateEvidence
		}
		return nil, fmt.Errorf("event insert failed: %w", err)
	}

	if _, err := g.trail.Append(audit.EntryIngest, ev.ID, "ingested", ev, map[string]string{
		"publisher": ev.Publisher,
	}); err != nil {
		// The event is already durable; a trail failure is logged, not
		// propagated as an ingest failure.
		g.logger.WarnContext(ctx, "audit append failed", "event_id", ev.ID, "error", err)
	}

	g.logger.InfoContext(ctx, "event ingested",
		"event_id", ev.ID, "publisher", ev.Publisher, "tier", string(ev.Tier))
	return ev, nil
}

// MarkRetracted soft-marks an ingested event as retracted and records
// the decision in the trail. Retraction decisions come from the review
// subsystem; the engine only applies them.
func (g *Gate) MarkRetracted(ctx context.Context, eventID string, r contracts.RetractionRecord) error {
	if r.RetractedAt.IsZero() {
		r.RetractedAt = g.clock().UTC()
	}
	if err := g.store.MarkRetracted(ctx, eventID, r); err != nil {
		return err
	}
	if _, err := g.trail.Append(audit.EntryRetraction, eventID, "retracted", r, nil); err != nil {
		g.logger.WarnContext(ctx, "audit append failed", "event_id", eventID, "error", err)
	}
	g.logger.InfoContext(ctx, "event retracted", "event_id", eventID, "reason", r.Reason)
	return nil
}

func (c Candidate) validate() error {
	if c.URL == "" || c.Publisher == "" || c.Title == "" {
		return ErrInvalidCandidate
	}
	if c.PublishedAt.IsZero() {
		return ErrInvalidCandidate
	}
	if !c.Tier.Valid() {
		return fmt.Errorf("%w: tier %q", ErrInvalidCandidate, c.Tier)
	}
	if c.DedupHash == "" && c.ContentHash == "" {
		return ErrMissingFingerprint
	}
	return nil
}

func (g *Gate) limiter(publisher string) *rate.Limiter {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.limiters[publisher]
	if !ok {
		l = rate.NewLimiter(g.rps, g.burst)
		g.limiters[publisher] = l
	}
	return l
}
