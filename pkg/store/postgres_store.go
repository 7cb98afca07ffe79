package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/Vantage-Labs/vantage/core/pkg/contracts"
)

// uniqueViolation is the Postgres error code for a unique constraint hit.
const uniqueViolation = "23505"

// PostgresStore implements Store on PostgreSQL for multi-worker
// deployments. Concurrent producers racing to insert the same
// fingerprint are resolved by the unique indexes; the loser gets the
// duplicate sentinel, not a generic failure.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open *sql.DB. Schema management is expected
// to run via the deployment's migration tooling; Migrate is provided for
// development setups.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate applies the schema. Safe to re-run.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		url TEXT NOT NULL UNIQUE,
		publisher TEXT NOT NULL,
		source_type TEXT NOT NULL,
		tier TEXT NOT NULL,
		published_at TIMESTAMPTZ NOT NULL,
		dedup_hash TEXT,
		content_hash TEXT,
		retracted BOOLEAN NOT NULL DEFAULT FALSE,
		retraction_reason TEXT,
		retraction_evidence_url TEXT,
		retracted_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_events_dedup_hash
		ON events(dedup_hash) WHERE dedup_hash IS NOT NULL;
	CREATE UNIQUE INDEX IF NOT EXISTS idx_events_content_hash
		ON events(content_hash) WHERE content_hash IS NOT NULL;

	CREATE TABLE IF NOT EXISTS links (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL REFERENCES events(id),
		signpost_code TEXT NOT NULL,
		tier TEXT NOT NULL,
		provisional BOOLEAN NOT NULL,
		confidence DOUBLE PRECISION NOT NULL,
		event_date TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		approved_at TIMESTAMPTZ,
		approved_by TEXT,
		rejection_reason TEXT,
		UNIQUE(event_id, signpost_code)
	);
	CREATE INDEX IF NOT EXISTS idx_links_signpost ON links(signpost_code, tier);

	CREATE TABLE IF NOT EXISTS source_credibility_snapshots (
		publisher TEXT NOT NULL,
		day DATE NOT NULL,
		total_articles INTEGER NOT NULL,
		retracted_count INTEGER NOT NULL,
		retraction_rate DOUBLE PRECISION NOT NULL,
		credibility_score DOUBLE PRECISION NOT NULL,
		credibility_tier TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (publisher, day)
	);

	CREATE TABLE IF NOT EXISTS progress_index_snapshots (
		day DATE PRIMARY KEY,
		value DOUBLE PRECISION NOT NULL,
		capability_composite DOUBLE PRECISION NOT NULL,
		safety_composite DOUBLE PRECISION NOT NULL,
		safety_margin DOUBLE PRECISION NOT NULL,
		categories JSONB NOT NULL,
		weights JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);`
	_, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("postgres migration failed: %w", err)
	}
	return nil
}

func isPgUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}

func (s *PostgresStore) InsertEvent(ctx context.Context, ev *contracts.Event) error {
	query := `INSERT INTO events (
		id, title, url, publisher, source_type, tier, published_at,
		dedup_hash, content_hash, retracted, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.db.ExecContext(ctx, query,
		ev.ID, ev.Title, ev.URL, ev.Publisher, string(ev.SourceType), string(ev.Tier),
		ev.PublishedAt.UTC(), nullIfEmpty(ev.DedupHash), nullIfEmpty(ev.ContentHash),
		ev.Retracted, ev.CreatedAt.UTC())
	if isPgUniqueViolation(err) {
		return contracts.ErrDuplicateEvidence
	}
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetEvent(ctx context.Context, id string) (*contracts.Event, error) {
	query := `SELECT id, title, url, publisher, source_type, tier, published_at,
		dedup_hash, content_hash, retracted, retraction_reason,
		retraction_evidence_url, retracted_at, created_at
	FROM events WHERE id = $1`

	row := s.db.QueryRowContext(ctx, query, id)

	var ev contracts.Event
	var sourceType, tier string
	var dedupHash, contentHash, reason, evidenceURL sql.NullString
	var retractedAt sql.NullTime

	err := row.Scan(&ev.ID, &ev.Title, &ev.URL, &ev.Publisher, &sourceType,
		&tier, &ev.PublishedAt, &dedupHash, &contentHash, &ev.Retracted,
		&reason, &evidenceURL, &retractedAt, &ev.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, contracts.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	ev.SourceType = contracts.SourceType(sourceType)
	ev.Tier = contracts.Tier(tier)
	ev.DedupHash = dedupHash.String
	ev.ContentHash = contentHash.String
	if ev.Retracted {
		rec := contracts.RetractionRecord{Reason: reason.String, EvidenceURL: evidenceURL.String}
		if retractedAt.Valid {
			rec.RetractedAt = retractedAt.Time
		}
		ev.Retraction = &rec
	}
	return &ev, nil
}

func (s *PostgresStore) MarkRetracted(ctx context.Context, eventID string, r contracts.RetractionRecord) error {
	query := `UPDATE events SET retracted = TRUE, retraction_reason = $1,
		retraction_evidence_url = $2, retracted_at = $3 WHERE id = $4`

	res, err := s.db.ExecContext(ctx, query,
		r.Reason, nullIfEmpty(r.EvidenceURL), r.RetractedAt.UTC(), eventID)
	if err != nil {
		return fmt.Errorf("failed to mark event retracted: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return contracts.ErrEventNotFound
	}
	return nil
}

func (s *PostgresStore) CountArticles(ctx context.Context, publisher string, day time.Time) (int, int, error) {
	start := DayOf(day)
	end := start.AddDate(0, 0, 1)
	query := `SELECT COUNT(*), COUNT(*) FILTER (WHERE retracted) FROM events
		WHERE publisher = $1 AND published_at >= $2 AND published_at < $3`

	var total, retracted int
	err := s.db.QueryRowContext(ctx, query, publisher, start, end).Scan(&total, &retracted)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return total, retracted, nil
}

func (s *PostgresStore) InsertLink(ctx context.Context, link *contracts.EventSignpostLink) error {
	query := `INSERT INTO links (
		id, event_id, signpost_code, tier, provisional, confidence,
		event_date, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.db.ExecContext(ctx, query,
		link.ID, link.EventID, link.SignpostCode, string(link.Tier),
		link.Provisional, link.Confidence, link.EventDate.UTC(), link.CreatedAt.UTC())
	if isPgUniqueViolation(err) {
		return contracts.ErrDuplicateLink
	}
	if err != nil {
		return fmt.Errorf("failed to insert link: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetLink(ctx context.Context, id string) (*contracts.EventSignpostLink, error) {
	row := s.db.QueryRowContext(ctx, selectLinkPg+` WHERE id = $1`, id)
	link, err := scanLinkPg(row)
	if err == sql.ErrNoRows {
		return nil, contracts.ErrLinkNotFound
	}
	return link, err
}

func (s *PostgresStore) PromoteLink(ctx context.Context, id string, boost, capValue float64) (bool, error) {
	query := `UPDATE links SET provisional = FALSE, confidence = LEAST(confidence + $1, $2)
		WHERE id = $3 AND provisional AND tier = 'B'`

	res, err := s.db.ExecContext(ctx, query, boost, capValue, id)
	if err != nil {
		return false, fmt.Errorf("failed to promote link: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *PostgresStore) ListProvisional(ctx context.Context) ([]*contracts.EventSignpostLink, error) {
	query := selectLinkPg + ` WHERE provisional AND tier = 'B' ORDER BY created_at ASC`
	return s.queryLinks(ctx, query)
}

func (s *PostgresStore) HasCorroboration(ctx context.Context, signpostCode string, around time.Time, window time.Duration) (bool, error) {
	query := `SELECT EXISTS(
		SELECT 1 FROM links l JOIN events e ON e.id = l.event_id
		WHERE l.signpost_code = $1 AND l.tier = 'A' AND NOT e.retracted
		  AND l.event_date BETWEEN $2 AND $3)`

	var exists bool
	err := s.db.QueryRowContext(ctx, query, signpostCode,
		around.Add(-window).UTC(), around.Add(window).UTC()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("corroboration lookup failed: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) ListConfirmedBySignpost(ctx context.Context, signpostCode string) ([]*contracts.EventSignpostLink, error) {
	query := `SELECT l.id, l.event_id, l.signpost_code, l.tier, l.provisional,
		l.confidence, l.event_date, l.created_at, l.approved_at, l.approved_by,
		l.rejection_reason
	FROM links l JOIN events e ON e.id = l.event_id
	WHERE l.signpost_code = $1 AND NOT l.provisional AND l.tier IN ('A','B')
	  AND NOT e.retracted
	ORDER BY l.event_date ASC`
	return s.queryLinks(ctx, query, signpostCode)
}

func (s *PostgresStore) UpsertCredibilitySnapshot(ctx context.Context, snap *contracts.SourceCredibilitySnapshot) error {
	query := `INSERT INTO source_credibility_snapshots (
		publisher, day, total_articles, retracted_count, retraction_rate,
		credibility_score, credibility_tier, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (publisher, day) DO UPDATE SET
		total_articles = EXCLUDED.total_articles,
		retracted_count = EXCLUDED.retracted_count,
		retraction_rate = EXCLUDED.retraction_rate,
		credibility_score = EXCLUDED.credibility_score,
		credibility_tier = EXCLUDED.credibility_tier,
		created_at = EXCLUDED.created_at`

	_, err := s.db.ExecContext(ctx, query,
		snap.Publisher, DayOf(snap.Day), snap.TotalArticles, snap.RetractedCount,
		snap.RetractionRate, snap.CredibilityScore, string(snap.CredibilityTier),
		snap.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert credibility snapshot: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCredibilitySnapshot(ctx context.Context, publisher string, day time.Time) (*contracts.SourceCredibilitySnapshot, error) {
	query := `SELECT publisher, day, total_articles, retracted_count,
		retraction_rate, credibility_score, credibility_tier, created_at
	FROM source_credibility_snapshots WHERE publisher = $1 AND day = $2`

	row := s.db.QueryRowContext(ctx, query, publisher, DayOf(day))

	var snap contracts.SourceCredibilitySnapshot
	var tier string
	err := row.Scan(&snap.Publisher, &snap.Day, &snap.TotalArticles,
		&snap.RetractedCount, &snap.RetractionRate, &snap.CredibilityScore,
		&tier, &snap.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credibility snapshot: %w", err)
	}
	snap.CredibilityTier = contracts.Tier(tier)
	return &snap, nil
}

func (s *PostgresStore) UpsertIndexSnapshot(ctx context.Context, snap *contracts.ProgressIndexSnapshot) error {
	categories, err := json.Marshal(snap.Categories)
	if err != nil {
		return fmt.Errorf("failed to marshal category breakdown: %w", err)
	}
	weights, err := json.Marshal(snap.Weights)
	if err != nil {
		return fmt.Errorf("failed to marshal weight config: %w", err)
	}

	query := `INSERT INTO progress_index_snapshots (
		day, value, capability_composite, safety_composite, safety_margin,
		categories, weights, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (day) DO UPDATE SET
		value = EXCLUDED.value,
		capability_composite = EXCLUDED.capability_composite,
		safety_composite = EXCLUDED.safety_composite,
		safety_margin = EXCLUDED.safety_margin,
		categories = EXCLUDED.categories,
		weights = EXCLUDED.weights,
		created_at = EXCLUDED.created_at`

	_, err = s.db.ExecContext(ctx, query,
		DayOf(snap.Day), snap.Value, snap.CapabilityComposite,
		snap.SafetyComposite, snap.SafetyMargin, categories, weights,
		snap.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert index snapshot: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetIndexSnapshot(ctx context.Context, day time.Time) (*contracts.ProgressIndexSnapshot, error) {
	query := `SELECT day, value, capability_composite, safety_composite,
		safety_margin, categories, weights, created_at
	FROM progress_index_snapshots WHERE day = $1`

	row := s.db.QueryRowContext(ctx, query, DayOf(day))

	var snap contracts.ProgressIndexSnapshot
	var categories, weights []byte
	err := row.Scan(&snap.Day, &snap.Value, &snap.CapabilityComposite,
		&snap.SafetyComposite, &snap.SafetyMargin, &categories, &weights,
		&snap.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get index snapshot: %w", err)
	}
	if err := json.Unmarshal(categories, &snap.Categories); err != nil {
		return nil, fmt.Errorf("corrupt category breakdown: %w", err)
	}
	if err := json.Unmarshal(weights, &snap.Weights); err != nil {
		return nil, fmt.Errorf("corrupt weight config: %w", err)
	}
	return &snap, nil
}

const selectLinkPg = `SELECT id, event_id, signpost_code, tier, provisional,
	confidence, event_date, created_at, approved_at, approved_by,
	rejection_reason FROM links`

func (s *PostgresStore) queryLinks(ctx context.Context, query string, args ...any) ([]*contracts.EventSignpostLink, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("link query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var links []*contracts.EventSignpostLink
	for rows.Next() {
		link, err := scanLinkPg(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return links, nil
}

func scanLinkPg(row rowScanner) (*contracts.EventSignpostLink, error) {
	var link contracts.EventSignpostLink
	var tier string
	var approvedAt sql.NullTime
	var approvedBy, rejectionReason sql.NullString

	err := row.Scan(&link.ID, &link.EventID, &link.SignpostCode, &tier,
		&link.Provisional, &link.Confidence, &link.EventDate, &link.CreatedAt,
		&approvedAt, &approvedBy, &rejectionReason)
	if err != nil {
		return nil, err
	}
	link.Tier = contracts.Tier(tier)
	if approvedAt.Valid {
		t := approvedAt.Time
		link.ApprovedAt = &t
	}
	link.ApprovedBy = approvedBy.String
	link.RejectionReason = rejectionReason.String
	return &link, nil
}
