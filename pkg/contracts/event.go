// Package contracts defines the shared domain types for the VANTAGE
// evidence credibility and progress-index engine. All other packages
// depend on contracts; contracts depends on nothing.
package contracts

import "time"

// SourceType classifies where an event was reported.
type SourceType string

// Source type constants.
const (
	SourceOfficial  SourceType = "official"   // lab announcement, primary publication
	SourcePaper     SourceType = "paper"      // peer-reviewed or preprint paper
	SourceBenchmark SourceType = "benchmark"  // leaderboard / eval-harness result
	SourcePress     SourceType = "press"      // established press outlet
	SourceBlog      SourceType = "blog"       // independent blog or newsletter
	SourceSocial    SourceType = "social"     // social media post
	SourceUnknown   SourceType = "unknown"
)

// Event is a reported occurrence about AI progress. Events are created by
// the ingestion producers and never hard-deleted; a retraction is a soft
// mark so the audit trail stays intact.
type Event struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	URL         string     `json:"url"` // unique source URL
	Publisher   string     `json:"publisher"`
	SourceType  SourceType `json:"source_type"`
	Tier        Tier       `json:"tier"` // tier of the event as reported
	PublishedAt time.Time  `json:"published_at"`

	// DedupHash is the canonical fingerprint of normalized
	// title+publisher+date-bucket. ContentHash is the fallback fingerprint
	// over the full text. Both are opaque here; uniqueness is enforced by
	// the store for non-empty values.
	DedupHash   string `json:"dedup_hash,omitempty"`
	ContentHash string `json:"content_hash,omitempty"`

	Retracted  bool              `json:"retracted"`
	Retraction *RetractionRecord `json:"retraction,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// RetractionRecord carries the metadata of a soft retraction.
type RetractionRecord struct {
	Reason      string    `json:"reason"`
	EvidenceURL string    `json:"evidence_url,omitempty"`
	RetractedAt time.Time `json:"retracted_at"`
}
