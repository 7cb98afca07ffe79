// Package roadmap classifies how observed milestone timing compares
// against a published prediction.
package roadmap

import (
	"time"

	"github.com/Vantage-Labs/vantage/core/pkg/contracts"
)

// DefaultWindowDays is the tolerance applied when a caller passes a
// non-positive window.
const DefaultWindowDays = 30

// Classify compares a predicted milestone date against an optional
// observed date under a tolerance window of windowDays. It is pure and
// total: every input maps to exactly one of the four statuses.
func Classify(predicted time.Time, observed *time.Time, windowDays int) contracts.RoadmapStatus {
	if observed == nil || observed.IsZero() {
		return contracts.RoadmapUnobserved
	}
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}

	delta := daysBetween(predicted, *observed)
	switch {
	case delta < -windowDays:
		return contracts.RoadmapAhead
	case delta > windowDays:
		return contracts.RoadmapBehind
	default:
		return contracts.RoadmapOnTrack
	}
}

// daysBetween returns observed minus predicted in whole calendar days,
// comparing UTC dates so time-of-day and zone never shift the status.
func daysBetween(predicted, observed time.Time) int {
	return int(dayOf(observed).Sub(dayOf(predicted)) / (24 * time.Hour))
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
