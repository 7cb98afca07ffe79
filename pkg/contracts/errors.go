package contracts

import (
	"errors"
	"fmt"
)

// Domain error taxonomy. Duplicate errors are expected outcomes, not
// failures: callers treat them as "already ingested" no-ops. Undefined
// aggregation is a configuration/data error surfaced to operators, never
// silently defaulted.
var (
	ErrDuplicateEvidence    = errors.New("evidence already ingested for fingerprint")
	ErrDuplicateLink        = errors.New("link already exists for event/signpost pair")
	ErrUndefinedAggregation = errors.New("aggregation undefined for inputs")
	ErrEventNotFound        = errors.New("event not found")
	ErrLinkNotFound         = errors.New("link not found")
	ErrSignpostNotFound     = errors.New("signpost not found")
	ErrUnknownCategory      = errors.New("unknown signpost category")
)

// CorroborationScanError reports an isolated per-candidate failure during
// a corroboration pass. The batch continues past it; the error is logged
// and surfaced in the pass result, never treated as link corruption.
type CorroborationScanError struct {
	LinkID string
	Err    error
}

func (e *CorroborationScanError) Error() string {
	return fmt.Sprintf("corroboration scan failed for link %s: %v", e.LinkID, e.Err)
}

func (e *CorroborationScanError) Unwrap() error {
	return e.Err
}
