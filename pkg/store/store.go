// Package store implements persistence for events, links, and daily
// snapshots. Uniqueness of event fingerprints and (event, signpost)
// pairs is enforced by storage constraints, never by check-then-insert:
// under concurrent producers the constraint is the only race-free
// coordination point, and driver-level violations are translated into
// the duplicate sentinels at this boundary.
package store

import (
	"context"
	"time"

	"github.com/Vantage-Labs/vantage/core/pkg/contracts"
)

// Store is the persistence contract consumed by the ingestion gate, the
// credibility assigner/estimator, the corroboration promoter, and the
// index aggregator.
type Store interface {
	// InsertEvent persists a new event. Returns
	// contracts.ErrDuplicateEvidence when the URL or either fingerprint
	// already exists; callers treat that as already-ingested, not as a
	// retryable failure.
	InsertEvent(ctx context.Context, ev *contracts.Event) error
	GetEvent(ctx context.Context, id string) (*contracts.Event, error)

	// MarkRetracted soft-marks an event; events are never hard-deleted.
	MarkRetracted(ctx context.Context, eventID string, r contracts.RetractionRecord) error

	// CountArticles returns total and retracted article counts for one
	// publisher on one UTC day.
	CountArticles(ctx context.Context, publisher string, day time.Time) (total, retracted int, err error)

	// InsertLink persists a new event↔signpost link. Returns
	// contracts.ErrDuplicateLink when the pair already exists.
	InsertLink(ctx context.Context, link *contracts.EventSignpostLink) error
	GetLink(ctx context.Context, id string) (*contracts.EventSignpostLink, error)

	// PromoteLink atomically flips provisional to false and applies the
	// confidence boost, capped. The update is conditional on the link
	// still being a provisional tier-B link, so re-applying a promotion
	// is a no-op; the returned bool reports whether this call promoted.
	PromoteLink(ctx context.Context, id string, boost, capValue float64) (bool, error)

	// ListProvisional returns all tier-B links still awaiting
	// corroboration, oldest first.
	ListProvisional(ctx context.Context) ([]*contracts.EventSignpostLink, error)

	// HasCorroboration reports whether any tier-A link exists on the
	// signpost whose event date falls within [around-window, around+window]
	// and whose source event has not been retracted.
	HasCorroboration(ctx context.Context, signpostCode string, around time.Time, window time.Duration) (bool, error)

	// ListConfirmedBySignpost returns the confirmed (non-provisional,
	// tier A or B) links for a signpost, excluding retracted events.
	ListConfirmedBySignpost(ctx context.Context, signpostCode string) ([]*contracts.EventSignpostLink, error)

	// Snapshot upserts are keyed on (publisher, day) and (day): a re-run
	// for the same day replaces the row rather than duplicating or
	// failing. Within a day the write is effectively immutable history
	// once the day has passed.
	UpsertCredibilitySnapshot(ctx context.Context, snap *contracts.SourceCredibilitySnapshot) error
	GetCredibilitySnapshot(ctx context.Context, publisher string, day time.Time) (*contracts.SourceCredibilitySnapshot, error)
	UpsertIndexSnapshot(ctx context.Context, snap *contracts.ProgressIndexSnapshot) error
	GetIndexSnapshot(ctx context.Context, day time.Time) (*contracts.ProgressIndexSnapshot, error)
}

// dayKey is the canonical storage form of a snapshot day.
const dayKey = "2006-01-02"

// DayOf truncates t to its UTC day.
func DayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
