package contracts

import "time"

// EventSignpostLink is a scored association between one Event and one
// Signpost. Unique per (event, signpost) pair. Only the corroboration
// promoter may flip Provisional to false and raise Confidence; review
// fields are set by administrative action outside this engine.
type EventSignpostLink struct {
	ID           string `json:"id"`
	EventID      string `json:"event_id"`
	SignpostCode string `json:"signpost_code"`

	// Tier is the evidentiary strength of this specific link, which may be
	// weaker than the tier of the event itself.
	Tier        Tier    `json:"tier"`
	Provisional bool    `json:"provisional"`
	Confidence  float64 `json:"confidence"` // in [0,1], capped below 1.0

	// EventDate is the occurrence date of the linked event, denormalized
	// onto the link so corroboration window matching needs no join.
	EventDate time.Time `json:"event_date"`
	CreatedAt time.Time `json:"created_at"`

	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	ApprovedBy      string     `json:"approved_by,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
}

// Confirmed reports whether the link counts as confirmed evidence for
// index computation: tier A, or a tier-B link that has been promoted.
// Tier C never qualifies.
func (l *EventSignpostLink) Confirmed() bool {
	if l.Tier == TierC {
		return false
	}
	return !l.Provisional
}
