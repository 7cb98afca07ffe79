package contracts

// RoadmapStatus is the outcome of comparing a predicted milestone date
// against the observed date.
type RoadmapStatus string

// Roadmap status constants.
const (
	RoadmapAhead      RoadmapStatus = "ahead"
	RoadmapOnTrack    RoadmapStatus = "on_track"
	RoadmapBehind     RoadmapStatus = "behind"
	RoadmapUnobserved RoadmapStatus = "unobserved"
)
