package contracts

// Tier is the evidentiary strength ranking of a source or link.
// A = primary/confirmed, B = single-source provisional, C = unverified.
type Tier string

// Tier constants, strongest first.
const (
	TierA Tier = "A"
	TierB Tier = "B"
	TierC Tier = "C"
)

// Rank returns the ordering of a tier, lower is stronger. Unknown tiers
// rank below C.
func (t Tier) Rank() int {
	switch t {
	case TierA:
		return 0
	case TierB:
		return 1
	case TierC:
		return 2
	default:
		return 3
	}
}

// Valid reports whether t is one of the defined tiers.
func (t Tier) Valid() bool {
	return t == TierA || t == TierB || t == TierC
}

// StrongerThan reports whether t outranks other.
func (t Tier) StrongerThan(other Tier) bool {
	return t.Rank() < other.Rank()
}
