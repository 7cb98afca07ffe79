package contracts

// SignpostCategory is the closed set of progress-milestone categories.
// Categories read from seed data are validated against this set at load
// time; free-form strings never reach aggregation.
type SignpostCategory string

// Category constants.
const (
	CategoryCapabilityBenchmark SignpostCategory = "capability_benchmark"
	CategoryComputeScale        SignpostCategory = "compute_scale"
	CategoryAgenticAutonomy     SignpostCategory = "agentic_autonomy"
	CategoryDeploymentReach     SignpostCategory = "deployment_reach"
	CategorySafetyTechnique     SignpostCategory = "safety_technique"
	CategorySecurityHardening   SignpostCategory = "security_hardening"
	CategoryAlignmentEvaluation SignpostCategory = "alignment_evaluation"
	CategoryGovernanceControl   SignpostCategory = "governance_control"
)

// Composite identifies which side of the capability/safety balance a
// category contributes to.
type Composite string

// Composite constants.
const (
	CompositeCapability Composite = "capability"
	CompositeSafety     Composite = "safety"
)

// AllCategories maps every valid category to its composite.
var AllCategories = map[SignpostCategory]Composite{
	CategoryCapabilityBenchmark: CompositeCapability,
	CategoryComputeScale:        CompositeCapability,
	CategoryAgenticAutonomy:     CompositeCapability,
	CategoryDeploymentReach:     CompositeCapability,
	CategorySafetyTechnique:     CompositeSafety,
	CategorySecurityHardening:   CompositeSafety,
	CategoryAlignmentEvaluation: CompositeSafety,
	CategoryGovernanceControl:   CompositeSafety,
}

// Valid reports whether c is a member of the closed category set.
func (c SignpostCategory) Valid() bool {
	_, ok := AllCategories[c]
	return ok
}

// Composite returns the composite the category belongs to. Callers must
// check Valid first; unknown categories report capability to keep the
// return total.
func (c SignpostCategory) Composite() Composite {
	if comp, ok := AllCategories[c]; ok {
		return comp
	}
	return CompositeCapability
}

// Direction is the desirable direction of metric change for a signpost.
type Direction string

// Direction constants.
const (
	DirectionIncreasing Direction = "increasing" // progress when metric >= target
	DirectionDecreasing Direction = "decreasing" // progress when metric <= target
)

// Valid reports whether d is a defined direction.
func (d Direction) Valid() bool {
	return d == DirectionIncreasing || d == DirectionDecreasing
}

// Signpost is a named, versioned progress-milestone definition.
// Invariant: Baseline != Target (division-safe normalization).
type Signpost struct {
	Code      string           `json:"code"` // unique
	Version   string           `json:"version"`
	Title     string           `json:"title"`
	Category  SignpostCategory `json:"category"`
	Direction Direction        `json:"direction"`

	Baseline float64 `json:"baseline"`
	Target   float64 `json:"target"`
	Current  float64 `json:"current"`

	// ForecastConfidence is an optional external forecaster probability
	// attached to the milestone, nil when no forecast exists.
	ForecastConfidence *float64 `json:"forecast_confidence,omitempty"`
}
