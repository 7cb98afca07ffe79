// Package credibility decides how much an event is worth as evidence:
// it assigns the tier and initial confidence of event↔signpost links,
// and scores publishers from their retraction history.
package credibility

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/Vantage-Labs/vantage/core/pkg/contracts"
)

// Policy holds the tunable credibility parameters. The cut points are
// editorial policy, not engine design, so they load from YAML; the
// defaults mirror the seeded production policy.
type Policy struct {
	// TierBySource maps an event's source type to the evidentiary tier
	// of links created from it.
	TierBySource map[contracts.SourceType]contracts.Tier `yaml:"tier_by_source"`

	// ConfidenceBySource is the initial link confidence per source type.
	ConfidenceBySource map[contracts.SourceType]float64 `yaml:"confidence_by_source"`

	// PublisherTiers buckets a Wilson credibility score into a letter
	// grade, evaluated highest threshold first.
	PublisherTiers []TierThreshold `yaml:"publisher_tiers"`
}

// TierThreshold grades scores at or above Min into Tier.
type TierThreshold struct {
	Min  float64        `yaml:"min"`
	Tier contracts.Tier `yaml:"tier"`
}

// DefaultPolicy returns the built-in policy.
func DefaultPolicy() Policy {
	return Policy{
		TierBySource: map[contracts.SourceType]contracts.Tier{
			contracts.SourceOfficial:  contracts.TierA,
			contracts.SourceBenchmark: contracts.TierA,
			contracts.SourcePaper:     contracts.TierA,
			contracts.SourcePress:     contracts.TierB,
			contracts.SourceBlog:      contracts.TierB,
			contracts.SourceSocial:    contracts.TierC,
			contracts.SourceUnknown:   contracts.TierC,
		},
		ConfidenceBySource: map[contracts.SourceType]float64{
			contracts.SourceOfficial:  0.95,
			contracts.SourceBenchmark: 0.90,
			contracts.SourcePaper:     0.85,
			contracts.SourcePress:     0.65,
			contracts.SourceBlog:      0.55,
			contracts.SourceSocial:    0.30,
			contracts.SourceUnknown:   0.20,
		},
		PublisherTiers: []TierThreshold{
			{Min: 0.95, Tier: contracts.TierA},
			{Min: 0.80, Tier: contracts.TierB},
		},
	}
}

// LoadPolicy reads a policy YAML file and validates it.
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("failed to read policy file: %w", err)
	}
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("failed to parse policy file: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// Validate rejects policies that would let invalid tiers or confidences
// through to link creation.
func (p Policy) Validate() error {
	for src, tier := range p.TierBySource {
		if !tier.Valid() {
			return fmt.Errorf("policy maps source %q to invalid tier %q", src, tier)
		}
	}
	for src, conf := range p.ConfidenceBySource {
		if conf < 0 || conf >= 1 {
			return fmt.Errorf("policy confidence for source %q out of range: %v", src, conf)
		}
	}
	for _, th := range p.PublisherTiers {
		if !th.Tier.Valid() {
			return fmt.Errorf("policy publisher threshold has invalid tier %q", th.Tier)
		}
		if th.Min < 0 || th.Min > 1 {
			return fmt.Errorf("policy publisher threshold out of range: %v", th.Min)
		}
	}
	return nil
}

// gradePublisher buckets a credibility score using the thresholds,
// falling back to tier C below the lowest cut point.
func (p Policy) gradePublisher(score float64) contracts.Tier {
	thresholds := append([]TierThreshold(nil), p.PublisherTiers...)
	sort.Slice(thresholds, func(i, j int) bool { return thresholds[i].Min > thresholds[j].Min })
	for _, th := range thresholds {
		if score >= th.Min {
			return th.Tier
		}
	}
	return contracts.TierC
}
