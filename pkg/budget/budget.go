// Package budget enforces daily spend ceilings on the paid work the
// pipeline commissions per producer, such as LLM-assisted signpost
// mapping. Enforcement is fail-closed: when a check cannot complete,
// the spend is denied rather than risked.
package budget

import (
	"context"
	"time"
)

// Cost is one proposed spend.
type Cost struct {
	Amount int64  // in cents
	Reason string // what the spend is for
}

// Budget tracks limits and usage for one producer. Counters reset at
// the UTC midnight and month boundaries.
type Budget struct {
	Producer     string    `json:"producer"`
	DailyLimit   int64     `json:"daily_limit"`   // cents
	MonthlyLimit int64     `json:"monthly_limit"` // cents
	DailyUsed    int64     `json:"daily_used"`    // cents
	MonthlyUsed  int64     `json:"monthly_used"`  // cents
	LastUpdated  time.Time `json:"last_updated"`
}

// DailyRemaining returns the unspent daily allowance, floored at 0.
func (b *Budget) DailyRemaining() int64 {
	if remaining := b.DailyLimit - b.DailyUsed; remaining > 0 {
		return remaining
	}
	return 0
}

// MonthlyRemaining returns the unspent monthly allowance, floored at 0.
func (b *Budget) MonthlyRemaining() int64 {
	if remaining := b.MonthlyLimit - b.MonthlyUsed; remaining > 0 {
		return remaining
	}
	return 0
}

// Decision is the outcome of one spend check.
type Decision struct {
	Allowed   bool    `json:"allowed"`
	Reason    string  `json:"reason"`
	Remaining *Budget `json:"remaining,omitempty"`
}

// Storage persists budget rows.
type Storage interface {
	Get(ctx context.Context, producer string) (*Budget, error)
	Set(ctx context.Context, b *Budget) error
	Limits(ctx context.Context, producer string) (daily, monthly int64, err error)
	SetLimits(ctx context.Context, producer string, daily, monthly int64) error
}
