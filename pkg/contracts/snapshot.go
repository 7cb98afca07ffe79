package contracts

import "time"

// SourceCredibilitySnapshot is one immutable row per (publisher, day).
// Re-running the estimator for the same day replaces the row via upsert;
// a new day always gets a new row.
type SourceCredibilitySnapshot struct {
	Publisher      string    `json:"publisher"`
	Day            time.Time `json:"day"` // date component only, UTC
	TotalArticles  int       `json:"total_articles"`
	RetractedCount int       `json:"retracted_count"`

	// RetractionRate is retracted/total. CredibilityScore is the lower
	// bound of the 95% Wilson interval on the non-retraction rate, so
	// low-volume publishers are penalized instead of scoring a perfect 1.0
	// off a single article.
	RetractionRate   float64 `json:"retraction_rate"`
	CredibilityScore float64 `json:"credibility_score"`
	CredibilityTier  Tier    `json:"credibility_tier"`

	CreatedAt time.Time `json:"created_at"`
}

// WeightConfig is the weight configuration used for one index
// computation. It is persisted verbatim alongside each snapshot so
// historical snapshots stay reproducible when defaults change later.
type WeightConfig struct {
	Version    string                       `json:"version"`
	Signposts  map[string]float64           `json:"signposts,omitempty"`  // per-signpost, default 1
	Categories map[SignpostCategory]float64 `json:"categories,omitempty"` // per-category within its composite, default 1
}

// CategoryScore is the per-category breakdown entry of an index snapshot.
type CategoryScore struct {
	Category      SignpostCategory `json:"category"`
	Composite     Composite        `json:"composite"`
	Score         float64          `json:"score"` // in [0,1]
	SignpostCount int              `json:"signpost_count"`
}

// ProgressIndexSnapshot is one immutable row per day: the overall index
// in [0,100] with its category breakdown and the exact weights used.
type ProgressIndexSnapshot struct {
	Day   time.Time `json:"day"` // date component only, UTC
	Value float64   `json:"value"`

	CapabilityComposite float64 `json:"capability_composite"` // in [0,1]
	SafetyComposite     float64 `json:"safety_composite"`     // in [0,1]

	// SafetyMargin is safety minus capability composite. Negative means
	// capability is outpacing safety controls.
	SafetyMargin float64 `json:"safety_margin"`

	Categories []CategoryScore `json:"categories"`
	Weights    WeightConfig    `json:"weights"`

	CreatedAt time.Time `json:"created_at"`
}
