package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Vantage-Labs/vantage/core/pkg/contracts"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on SQLite. It is the default backend for
// single-node deployments and tests.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps db and applies the schema.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenSQLite opens (or creates) a SQLite database at path and returns a
// migrated store. Use ":memory:" for an ephemeral database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// modernc sqlite serializes at the driver level; a single connection
	// avoids SQLITE_BUSY under concurrent writers.
	db.SetMaxOpenConns(1)
	return NewSQLiteStore(db)
}

func (s *SQLiteStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		url TEXT NOT NULL UNIQUE,
		publisher TEXT NOT NULL,
		source_type TEXT NOT NULL,
		tier TEXT NOT NULL,
		published_at TEXT NOT NULL,
		dedup_hash TEXT,
		content_hash TEXT,
		retracted INTEGER NOT NULL DEFAULT 0,
		retraction_reason TEXT,
		retraction_evidence_url TEXT,
		retracted_at TEXT,
		created_at TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_events_dedup_hash
		ON events(dedup_hash) WHERE dedup_hash IS NOT NULL AND dedup_hash != '';
	CREATE UNIQUE INDEX IF NOT EXISTS idx_events_content_hash
		ON events(content_hash) WHERE content_hash IS NOT NULL AND content_hash != '';

	CREATE TABLE IF NOT EXISTS links (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL REFERENCES events(id),
		signpost_code TEXT NOT NULL,
		tier TEXT NOT NULL,
		provisional INTEGER NOT NULL,
		confidence REAL NOT NULL,
		event_date TEXT NOT NULL,
		created_at TEXT NOT NULL,
		approved_at TEXT,
		approved_by TEXT,
		rejection_reason TEXT,
		UNIQUE(event_id, signpost_code)
	);
	CREATE INDEX IF NOT EXISTS idx_links_signpost ON links(signpost_code, tier);

	CREATE TABLE IF NOT EXISTS source_credibility_snapshots (
		publisher TEXT NOT NULL,
		day TEXT NOT NULL,
		total_articles INTEGER NOT NULL,
		retracted_count INTEGER NOT NULL,
		retraction_rate REAL NOT NULL,
		credibility_score REAL NOT NULL,
		credibility_tier TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (publisher, day)
	);

	CREATE TABLE IF NOT EXISTS progress_index_snapshots (
		day TEXT PRIMARY KEY,
		value REAL NOT NULL,
		capability_composite REAL NOT NULL,
		safety_composite REAL NOT NULL,
		safety_margin REAL NOT NULL,
		categories TEXT NOT NULL,
		weights TEXT NOT NULL,
		created_at TEXT NOT NULL
	);`
	_, err := s.db.ExecContext(context.Background(), query)
	if err != nil {
		return fmt.Errorf("sqlite migration failed: %w", err)
	}
	return nil
}

// isUniqueViolation matches the constraint error text produced by the
// modernc driver. The driver is registered blank, so the error type is
// not available for errors.As here.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed") && strings.Contains(msg, "2067")
}

func (s *SQLiteStore) InsertEvent(ctx context.Context, ev *contracts.Event) error {
	query := `INSERT INTO events (
		id, title, url, publisher, source_type, tier, published_at,
		dedup_hash, content_hash, retracted, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		ev.ID, ev.Title, ev.URL, ev.Publisher, string(ev.SourceType), string(ev.Tier),
		ev.PublishedAt.UTC().Format(time.RFC3339),
		nullIfEmpty(ev.DedupHash), nullIfEmpty(ev.ContentHash),
		boolToInt(ev.Retracted), ev.CreatedAt.UTC().Format(time.RFC3339),
	)
	if isUniqueViolation(err) {
		return contracts.ErrDuplicateEvidence
	}
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetEvent(ctx context.Context, id string) (*contracts.Event, error) {
	query := `SELECT id, title, url, publisher, source_type, tier, published_at,
		dedup_hash, content_hash, retracted, retraction_reason,
		retraction_evidence_url, retracted_at, created_at
	FROM events WHERE id = ?`

	row := s.db.QueryRowContext(ctx, query, id)
	return scanEvent(row)
}

func (s *SQLiteStore) MarkRetracted(ctx context.Context, eventID string, r contracts.RetractionRecord) error {
	query := `UPDATE events SET retracted = 1, retraction_reason = ?,
		retraction_evidence_url = ?, retracted_at = ? WHERE id = ?`

	res, err := s.db.ExecContext(ctx, query,
		r.Reason, nullIfEmpty(r.EvidenceURL),
		r.RetractedAt.UTC().Format(time.RFC3339), eventID)
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

func (s *SQLiteStore) CountArticles(ctx context.Context, publisher string, day time.Time) (int, int, error) {
	start := DayOf(day)
	end := start.AddDate(0, 0, 1)
	query := `SELECT COUNT(*), COALESCE(SUM(retracted), 0) FROM events
		WHERE publisher = ? AND published_at >= ? AND published_at < ?`

	var total, retracted int
	err := s.db.QueryRowContext(ctx, query, publisher,
		start.Format(time.RFC3339), end.Format(time.RFC3339)).Scan(&total, &retracted)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return total, retracted, nil
}

func (s *SQLiteStore) InsertLink(ctx context.Context, link *contracts.EventSignpostLink) error {
	query := `INSERT INTO links (
		id, event_id, signpost_code, tier, provisional, confidence,
		event_date, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		link.ID, link.EventID, link.SignpostCode, string(link.Tier),
		boolToInt(link.Provisional), link.Confidence,
		link.EventDate.UTC().Format(time.RFC3339),
		link.CreatedAt.UTC().Format(time.RFC3339),
	)
	if isUniqueViolation(err) {
		return contracts.ErrDuplicateLink
	}
	if err != nil {
		return fmt.Errorf("failed to insert link: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetLink(ctx context.Context, id string) (*contracts.EventSignpostLink, error) {
	row := s.db.QueryRowContext(ctx, selectLinkSQLite+` WHERE id = ?`, id)
	link, err := scanLink(row)
	if err == sql.ErrNoRows {
		return nil, contracts.ErrLinkNotFound
	}
	return link, err
}

func (s *SQLiteStore) PromoteLink(ctx context.Context, id string, boost, capValue float64) (bool, error) {
	// Conditional on the row still being provisional tier B: a repeated
	// promotion matches zero rows instead of double-applying the boost.
	query := `UPDATE links SET provisional = 0, confidence = MIN(confidence + ?, ?)
		WHERE id = ? AND provisional = 1 AND tier = 'B'`

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

func (s *SQLiteStore) ListProvisional(ctx context.Context) ([]*contracts.EventSignpostLink, error) {
	query := selectLinkSQLite + ` WHERE provisional = 1 AND tier = 'B' ORDER BY created_at ASC`
	return s.queryLinks(ctx, query)
}

func (s *SQLiteStore) HasCorroboration(ctx context.Context, signpostCode string, around time.Time, window time.Duration) (bool, error) {
	lo := around.Add(-window).UTC().Format(time.RFC3339)
	hi := around.Add(window).UTC().Format(time.RFC3339)
	query := `SELECT EXISTS(
		SELECT 1 FROM links l JOIN events e ON e.id = l.event_id
		WHERE l.signpost_code = ? AND l.tier = 'A' AND e.retracted = 0
		  AND l.event_date >= ? AND l.event_date <= ?)`

	var exists int
	if err := s.db.QueryRowContext(ctx, query, signpostCode, lo, hi).Scan(&exists); err != nil {
		return false, fmt.Errorf("corroboration lookup failed: %w", err)
	}
	return exists == 1, nil
}

func (s *SQLiteStore) ListConfirmedBySignpost(ctx context.Context, signpostCode string) ([]*contracts.EventSignpostLink, error) {
	query := `SELECT l.id, l.event_id, l.signpost_code, l.tier, l.provisional,
		l.confidence, l.event_date, l.created_at, l.approved_at, l.approved_by,
		l.rejection_reason
	FROM links l JOIN events e ON e.id = l.event_id
	WHERE l.signpost_code = ? AND l.provisional = 0 AND l.tier IN ('A','B')
	  AND e.retracted = 0
	ORDER BY l.event_date ASC`
	return s.queryLinks(ctx, query, signpostCode)
}

func (s *SQLiteStore) UpsertCredibilitySnapshot(ctx context.Context, snap *contracts.SourceCredibilitySnapshot) error {
	query := `INSERT INTO source_credibility_snapshots (
		publisher, day, total_articles, retracted_count, retraction_rate,
		credibility_score, credibility_tier, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (publisher, day) DO UPDATE SET
		total_articles = excluded.total_articles,
		retracted_count = excluded.retracted_count,
		retraction_rate = excluded.retraction_rate,
		credibility_score = excluded.credibility_score,
		credibility_tier = excluded.credibility_tier,
		created_at = excluded.created_at`

	_, err := s.db.ExecContext(ctx, query,
		snap.Publisher, DayOf(snap.Day).Format(dayKey),
		snap.TotalArticles, snap.RetractedCount, snap.RetractionRate,
		snap.CredibilityScore, string(snap.CredibilityTier),
		snap.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to upsert credibility snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetCredibilitySnapshot(ctx context.Context, publisher string, day time.Time) (*contracts.SourceCredibilitySnapshot, error) {
	query := `SELECT publisher, day, total_articles, retracted_count,
		retraction_rate, credibility_score, credibility_tier, created_at
	FROM source_credibility_snapshots WHERE publisher = ? AND day = ?`

	row := s.db.QueryRowContext(ctx, query, publisher, DayOf(day).Format(dayKey))

	var snap contracts.SourceCredibilitySnapshot
	var dayStr, tier, createdAt string
	err := row.Scan(&snap.Publisher, &dayStr, &snap.TotalArticles,
		&snap.RetractedCount, &snap.RetractionRate, &snap.CredibilityScore,
		&tier, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credibility snapshot: %w", err)
	}
	snap.Day, _ = time.ParseInLocation(dayKey, dayStr, time.UTC)
	snap.CredibilityTier = contracts.Tier(tier)
	snap.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &snap, nil
}

func (s *SQLiteStore) UpsertIndexSnapshot(ctx context.Context, snap *contracts.ProgressIndexSnapshot) error {
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
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (day) DO UPDATE SET
		value = excluded.value,
		capability_composite = excluded.capability_composite,
		safety_composite = excluded.safety_composite,
		safety_margin = excluded.safety_margin,
		categories = excluded.categories,
		weights = excluded.weights,
		created_at = excluded.created_at`

	_, err = s.db.ExecContext(ctx, query,
		DayOf(snap.Day).Format(dayKey), snap.Value,
		snap.CapabilityComposite, snap.SafetyComposite, snap.SafetyMargin,
		string(categories), string(weights),
		snap.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to upsert index snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetIndexSnapshot(ctx context.Context, day time.Time) (*contracts.ProgressIndexSnapshot, error) {
	query := `SELECT day, value, capability_composite, safety_composite,
		safety_margin, categories, weights, created_at
	FROM progress_index_snapshots WHERE day = ?`

	row := s.db.QueryRowContext(ctx, query, DayOf(day).Format(dayKey))

	var snap contracts.ProgressIndexSnapshot
	var dayStr, categories, weights, createdAt string
	err := row.Scan(&dayStr, &snap.Value, &snap.CapabilityComposite,
		&snap.SafetyComposite, &snap.SafetyMargin, &categories, &weights, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get index snapshot: %w", err)
	}
	snap.Day, _ = time.ParseInLocation(dayKey, dayStr, time.UTC)
	snap.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if err := json.Unmarshal([]byte(categories), &snap.Categories); err != nil {
		return nil, fmt.Errorf("corrupt category breakdown: %w", err)
	}
	if err := json.Unmarshal([]byte(weights), &snap.Weights); err != nil {
		return nil, fmt.Errorf("corrupt weight config: %w", err)
	}
	return &snap, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

const selectLinkSQLite = `SELECT id, event_id, signpost_code, tier, provisional,
	confidence, event_date, created_at, approved_at, approved_by,
	rejection_reason FROM links`

func (s *SQLiteStore) queryLinks(ctx context.Context, query string, args ...any) ([]*contracts.EventSignpostLink, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("link query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var links []*contracts.EventSignpostLink
	for rows.Next() {
		link, err := scanLink(rows)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(row rowScanner) (*contracts.EventSignpostLink, error) {
	var link contracts.EventSignpostLink
	var tier, eventDate, createdAt string
	var provisional int
	var approvedAt, approvedBy, rejectionReason sql.NullString

	err := row.Scan(&link.ID, &link.EventID, &link.SignpostCode, &tier,
		&provisional, &link.Confidence, &eventDate, &createdAt,
		&approvedAt, &approvedBy, &rejectionReason)
	if err != nil {
		return nil, err
	}
	link.Tier = contracts.Tier(tier)
	link.Provisional = provisional != 0
	link.EventDate, _ = time.Parse(time.RFC3339, eventDate)
	link.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if approvedAt.Valid {
		t, err := time.Parse(time.RFC3339, approvedAt.String)
		if err == nil {
			link.ApprovedAt = &t
		}
	}
	link.ApprovedBy = approvedBy.String
	link.RejectionReason = rejectionReason.String
	return &link, nil
}

func scanEvent(row rowScanner) (*contracts.Event, error) {
	var ev contracts.Event
	var sourceType, tier, publishedAt, createdAt string
	var dedupHash, contentHash, reason, evidenceURL, retractedAt sql.NullString
	var retracted int

	err := row.Scan(&ev.ID, &ev.Title, &ev.URL, &ev.Publisher, &sourceType,
		&tier, &publishedAt, &dedupHash, &contentHash, &retracted,
		&reason, &evidenceURL, &retractedAt, &createdAt)
	if err == sql.ErrNoRows {
		return nil, contracts.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}
	ev.SourceType = contracts.SourceType(sourceType)
	ev.Tier = contracts.Tier(tier)
	ev.PublishedAt, _ = time.Parse(time.RFC3339, publishedAt)
	ev.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	ev.DedupHash = dedupHash.String
	ev.ContentHash = contentHash.String
	ev.Retracted = retracted != 0
	if ev.Retracted {
		rec := contracts.RetractionRecord{
			Reason:      reason.String,
			EvidenceURL: evidenceURL.String,
		}
		if retractedAt.Valid {
			rec.RetractedAt, _ = time.Parse(time.RFC3339, retractedAt.String)
		}
		ev.Retraction = &rec
	}
	return &ev, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
