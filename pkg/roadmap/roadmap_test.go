package roadmap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Vantage-Labs/vantage/core/pkg/contracts"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestClassify(t *testing.T) {
	predicted := date(2026, time.January, 1)

	cases := []struct {
		name     string
		observed *time.Time
		window   int
		want     contracts.RoadmapStatus
	}{
		{"well early", ptr(date(2025, time.November, 1)), 30, contracts.RoadmapAhead},
		{"inside window late", ptr(date(2026, time.January, 20)), 30, contracts.RoadmapOnTrack},
		{"well late", ptr(date(2026, time.March, 1)), 30, contracts.RoadmapBehind},
		{"no observation", nil, 30, contracts.RoadmapUnobserved},
		{"exactly on time", ptr(predicted), 30, contracts.RoadmapOnTrack},
		{"window edge late", ptr(date(2026, time.January, 31)), 30, contracts.RoadmapOnTrack},
		{"one past window edge", ptr(date(2026, time.February, 1)), 30, contracts.RoadmapBehind},
		{"window edge early", ptr(date(2025, time.December, 2)), 30, contracts.RoadmapOnTrack},
		{"one before window edge", ptr(date(2025, time.December, 1)), 30, contracts.RoadmapAhead},
		{"zero window falls back to default", ptr(date(2026, time.January, 20)), 0, contracts.RoadmapOnTrack},
		{"tight window", ptr(date(2026, time.January, 20)), 7, contracts.RoadmapBehind},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(predicted, tc.observed, tc.window))
		})
	}
}

func TestClassify_IgnoresTimeOfDay(t *testing.T) {
	predicted := time.Date(2026, time.January, 1, 23, 59, 0, 0, time.UTC)
	observed := time.Date(2026, time.January, 31, 0, 1, 0, 0, time.UTC)
	assert.Equal(t, contracts.RoadmapOnTrack, Classify(predicted, &observed, 30))
}

func ptr(t time.Time) *time.Time { return &t }
