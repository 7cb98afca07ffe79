package budget

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Enforcer applies check-and-reserve semantics over a Storage: an
// allowed check reserves the amount immediately, so concurrent spenders
// in the same process cannot both pass against the last slice of
// allowance.
type Enforcer struct {
	storage Storage
	logger  *slog.Logger
	clock   func() time.Time
	mu      sync.Mutex
}

// NewEnforcer creates an enforcer over the given storage.
func NewEnforcer(s Storage) *Enforcer {
	return &Enforcer{
		storage: s,
		logger:  slog.Default().With("component", "budget"),
		clock:   time.Now,
	}
}

// WithClock overrides the clock for deterministic testing.
func (e *Enforcer) WithClock(clock func() time.Time) *Enforcer {
	e.clock = clock
	return e
}

// GetBudget returns the current budget row for a producer, rolled
// forward over any elapsed reset boundaries.
func (e *Enforcer) GetBudget(ctx context.Context, producer string) (*Budget, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, err := e.load(ctx, producer)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// SetLimits updates the allowance for a producer.
func (e *Enforcer) SetLimits(ctx context.Context, producer string, daily, monthly int64) error {
	return e.storage.SetLimits(ctx, producer, daily, monthly)
}

// Check verifies and reserves a spend. Fails closed: a storage error
// denies the spend and surfaces the error.
func (e *Enforcer) Check(ctx context.Context, producer string, cost Cost) (*Decision, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, err := e.load(ctx, producer)
	if err != nil {
		e.logger.ErrorContext(ctx, "budget check failed closed",
			"producer", producer, "amount_cents", cost.Amount, "error", err)
		return &Decision{Allowed: false, Reason: fmt.Sprintf("check failed: %v", err)}, err
	}

	newDaily := b.DailyUsed + cost.Amount
	newMonthly := b.MonthlyUsed + cost.Amount
	if newDaily > b.DailyLimit {
		return &Decision{
			Allowed:   false,
			Reason:    fmt.Sprintf("daily limit exceeded: %d > %d", newDaily, b.DailyLimit),
			Remaining: b,
		}, nil
	}
	if newMonthly > b.MonthlyLimit {
		return &Decision{
			Allowed:   false,
			Reason:    fmt.Sprintf("monthly limit exceeded: %d > %d", newMonthly, b.MonthlyLimit),
			Remaining: b,
		}, nil
	}

	b.DailyUsed = newDaily
	b.MonthlyUsed = newMonthly
	b.LastUpdated = e.clock().UTC()
	if err := e.storage.Set(ctx, b); err != nil {
		e.logger.ErrorContext(ctx, "budget reservation persist failed closed",
			"producer", producer, "amount_cents", cost.Amount, "error", err)
		return &Decision{Allowed: false, Reason: "failed to persist reservation"}, err
	}

	e.logger.DebugContext(ctx, "spend reserved",
		"producer", producer, "amount_cents", cost.Amount, "reason", cost.Reason,
		"daily_remaining", b.DailyRemaining())
	return &Decision{Allowed: true, Reason: "within limits", Remaining: b}, nil
}

// load fetches the producer's row, initializing a fresh one from the
// configured limits and applying UTC boundary resets.
func (e *Enforcer) load(ctx context.Context, producer string) (*Budget, error) {
	b, err := e.storage.Get(ctx, producer)
	if err != nil {
		return nil, err
	}
	now := e.clock().UTC()
	if b == nil {
		daily, monthly, err := e.storage.Limits(ctx, producer)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch limits: %w", err)
		}
		return &Budget{
			Producer:     producer,
			DailyLimit:   daily,
			MonthlyLimit: monthly,
			LastUpdated:  now,
		}, nil
	}

	// Counters reset when a UTC midnight or month boundary has passed
	// since the last update, however long ago that was.
	last := b.LastUpdated.UTC()
	if dayOf(now) != dayOf(last) {
		b.DailyUsed = 0
	}
	ny, nm, _ := now.Date()
	ly, lm, _ := last.Date()
	if ny != ly || nm != lm {
		b.MonthlyUsed = 0
	}
	return b, nil
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
