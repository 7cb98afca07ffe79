// Package signpost holds the in-process registry of milestone
// definitions. Definitions are seeded from a YAML manifest and refreshed
// at runtime only through metric updates; structural changes ship as a
// new manifest version.
package signpost

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/Vantage-Labs/vantage/core/pkg/contracts"
)

var (
	ErrManifestInvalid = errors.New("signpost manifest is invalid")
	ErrDuplicateCode   = errors.New("duplicate signpost code")
)

// Manifest is the on-disk seed format.
type Manifest struct {
	Version   string       `yaml:"version"`
	Signposts []Definition `yaml:"signposts"`
}

// Definition is one signpost entry in the manifest.
type Definition struct {
	Code               string   `yaml:"code"`
	Version            string   `yaml:"version"`
	Title              string   `yaml:"title"`
	Category           string   `yaml:"category"`
	Direction          string   `yaml:"direction"`
	Baseline           float64  `yaml:"baseline"`
	Target             float64  `yaml:"target"`
	Current            float64  `yaml:"current"`
	ForecastConfidence *float64 `yaml:"forecast_confidence,omitempty"`
}

// Registry is a concurrency-safe view of the loaded signposts.
type Registry struct {
	mu        sync.RWMutex
	signposts map[string]*contracts.Signpost
	updatedAt map[string]time.Time
	logger    *slog.Logger
	clock     func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		signposts: make(map[string]*contracts.Signpost),
		updatedAt: make(map[string]time.Time),
		logger:    slog.Default().With("component", "signpost"),
		clock:     time.Now,
	}
}

// WithClock overrides the clock for deterministic testing.
func (r *Registry) WithClock(clock func() time.Time) *Registry {
	r.clock = clock
	return r
}

// LoadFile reads and registers a YAML manifest from disk.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read signpost manifest: %w", err)
	}
	return r.Load(data)
}

// Load parses a manifest and registers every definition. The whole
// manifest is validated before any entry is applied, so a bad file never
// leaves the registry half-loaded.
func (r *Registry) Load(data []byte) error {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("%w: %v", ErrManifestInvalid, err)
	}

	parsed := make([]*contracts.Signpost, 0, len(m.Signposts))
	seen := make(map[string]bool, len(m.Signposts))
	for _, def := range m.Signposts {
		sp, err := def.toSignpost()
		if err != nil {
			return err
		}
		if seen[sp.Code] {
			return fmt.Errorf("%w: %s", ErrDuplicateCode, sp.Code)
		}
		seen[sp.Code] = true
		parsed = append(parsed, sp)
	}

	now := r.clock().UTC()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sp := range parsed {
		r.signposts[sp.Code] = sp
		r.updatedAt[sp.Code] = now
	}
	r.logger.Info("signpost manifest loaded", "manifest_version", m.Version, "count", len(parsed))
	return nil
}

// Get returns one signpost by code.
func (r *Registry) Get(code string) (*contracts.Signpost, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sp, ok := r.signposts[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", contracts.ErrSignpostNotFound, code)
	}
	out := *sp
	return &out, nil
}

// All returns every registered signpost, sorted by code.
func (r *Registry) All() []*contracts.Signpost {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*contracts.Signpost, 0, len(r.signposts))
	for _, sp := range r.signposts {
		val := *sp
		out = append(out, &val)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// ByCategory returns the signposts in one category, sorted by code.
func (r *Registry) ByCategory(cat contracts.SignpostCategory) []*contracts.Signpost {
	var out []*contracts.Signpost
	for _, sp := range r.All() {
		if sp.Category == cat {
			out = append(out, sp)
		}
	}
	return out
}

// UpdateMetric records a fresh current value for a signpost. Benchmark
// connectors call this when a tracked leaderboard or release changes.
func (r *Registry) UpdateMetric(code string, current float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sp, ok := r.signposts[code]
	if !ok {
		return fmt.Errorf("%w: %s", contracts.ErrSignpostNotFound, code)
	}
	sp.Current = current
	r.updatedAt[code] = r.clock().UTC()
	r.logger.Info("signpost metric updated", "code", code, "current", current)
	return nil
}

// UpdatedAt returns when a signpost definition or metric last changed.
func (r *Registry) UpdatedAt(code string) (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ts, ok := r.updatedAt[code]
	return ts, ok
}

func (d Definition) toSignpost() (*contracts.Signpost, error) {
	if d.Code == "" {
		return nil, fmt.Errorf("%w: signpost with empty code", ErrManifestInvalid)
	}
	if _, err := semver.NewVersion(d.Version); err != nil {
		return nil, fmt.Errorf("%w: %s version %q: %v", ErrManifestInvalid, d.Code, d.Version, err)
	}
	cat := contracts.SignpostCategory(d.Category)
	if !cat.Valid() {
		return nil, fmt.Errorf("%w: %s category %q: %v", ErrManifestInvalid, d.Code, d.Category, contracts.ErrUnknownCategory)
	}
	dir := contracts.Direction(d.Direction)
	if !dir.Valid() {
		return nil, fmt.Errorf("%w: %s direction %q", ErrManifestInvalid, d.Code, d.Direction)
	}
	if d.Baseline == d.Target {
		return nil, fmt.Errorf("%w: %s baseline equals target", ErrManifestInvalid, d.Code)
	}
	return &contracts.Signpost{
		Code:               d.Code,
		Version:            d.Version,
		Title:              d.Title,
		Category:           cat,
		Direction:          dir,
		Baseline:           d.Baseline,
		Target:             d.Target,
		Current:            d.Current,
		ForecastConfidence: d.ForecastConfidence,
	}, nil
}
