package index

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Vantage-Labs/vantage/core/pkg/contracts"
)

const weightSchemaURL = "https://vantage.schemas.local/index/weights.schema.json"

const weightSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "version": {"type": "string", "minLength": 1},
    "signposts": {
      "type": "object",
      "additionalProperties": {"type": "number", "minimum": 0}
    },
    "categories": {
      "type": "object",
      "propertyNames": {
        "enum": [
          "capability_benchmark", "compute_scale", "agentic_autonomy",
          "deployment_reach", "safety_technique", "security_hardening",
          "alignment_evaluation", "governance_control"
        ]
      },
      "additionalProperties": {"type": "number", "minimum": 0}
    }
  },
  "required": ["version"],
  "additionalProperties": false
}`

var (
	compileWeightsOnce sync.Once
	compiledWeights    *jsonschema.Schema
)

func weightsSchema() *jsonschema.Schema {
	compileWeightsOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(weightSchemaURL, strings.NewReader(weightSchema)); err != nil {
			panic(fmt.Sprintf("weights schema load failed: %v", err))
		}
		compiledWeights = c.MustCompile(weightSchemaURL)
	})
	return compiledWeights
}

// ValidateWeights checks a weight configuration against the weights JSON
// schema before it drives an aggregation: negative weights, unknown
// category names, and a missing version are rejected up front rather than
// surfacing mid-computation.
func ValidateWeights(w contracts.WeightConfig) error {
	raw, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("weight config serialization failed: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("weight config round trip failed: %w", err)
	}
	if err := weightsSchema().Validate(doc); err != nil {
		return fmt.Errorf("%w: weight config rejected: %v", contracts.ErrUndefinedAggregation, err)
	}
	return nil
}

// weightLookup resolves configured weights with the default of 1 for
// anything unspecified.
type weightLookup struct {
	cfg contracts.WeightConfig
}

func (w weightLookup) signpost(code string) float64 {
	if v, ok := w.cfg.Signposts[code]; ok {
		return v
	}
	return 1
}

func (w weightLookup) category(cat contracts.SignpostCategory) float64 {
	if v, ok := w.cfg.Categories[cat]; ok {
		return v
	}
	return 1
}
