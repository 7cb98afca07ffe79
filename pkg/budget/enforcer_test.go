package budget

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStorage struct{}

func (failingStorage) Get(context.Context, string) (*Budget, error) {
	return nil, errors.New("storage down")
}
func (failingStorage) Set(context.Context, *Budget) error { return errors.New("storage down") }
func (failingStorage) Limits(context.Context, string) (int64, int64, error) {
	return 0, 0, errors.New("storage down")
}
func (failingStorage) SetLimits(context.Context, string, int64, int64) error {
	return errors.New("storage down")
}

func TestEnforcer_CheckAndReserve(t *testing.T) {
	e := NewEnforcer(NewMemoryStorage())
	ctx := context.Background()
	require.NoError(t, e.SetLimits(ctx, "mapper", 300, 10000))

	dec, err := e.Check(ctx, "mapper", Cost{Amount: 200, Reason: "signpost mapping"})
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
	assert.Equal(t, int64(100), dec.Remaining.DailyRemaining())

	// Second spend would cross the daily ceiling.
	dec, err = e.Check(ctx, "mapper", Cost{Amount: 150, Reason: "signpost mapping"})
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	assert.Contains(t, dec.Reason, "daily limit exceeded")

	// A smaller spend still fits.
	dec, err = e.Check(ctx, "mapper", Cost{Amount: 100, Reason: "signpost mapping"})
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
	assert.Equal(t, int64(0), dec.Remaining.DailyRemaining())
}

func TestEnforcer_MidnightReset(t *testing.T) {
	now := time.Date(2026, 5, 10, 23, 50, 0, 0, time.UTC)
	e := NewEnforcer(NewMemoryStorage()).WithClock(func() time.Time { return now })
	ctx := context.Background()
	require.NoError(t, e.SetLimits(ctx, "mapper", 100, 10000))

	dec, err := e.Check(ctx, "mapper", Cost{Amount: 100})
	require.NoError(t, err)
	require.True(t, dec.Allowed)

	dec, err = e.Check(ctx, "mapper", Cost{Amount: 1})
	require.NoError(t, err)
	assert.False(t, dec.Allowed)

	// Past UTC midnight the daily counter resets, the monthly carries.
	now = time.Date(2026, 5, 11, 0, 5, 0, 0, time.UTC)
	dec, err = e.Check(ctx, "mapper", Cost{Amount: 80})
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
	assert.Equal(t, int64(180), dec.Remaining.MonthlyUsed)

	// Month boundary resets the monthly counter too.
	now = time.Date(2026, 6, 1, 0, 5, 0, 0, time.UTC)
	b, err := e.GetBudget(ctx, "mapper")
	require.NoError(t, err)
	assert.Equal(t, int64(0), b.DailyUsed)
	assert.Equal(t, int64(0), b.MonthlyUsed)
}

func TestEnforcer_MonthlyCeiling(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	e := NewEnforcer(NewMemoryStorage()).WithClock(func() time.Time { return now })
	ctx := context.Background()
	require.NoError(t, e.SetLimits(ctx, "mapper", 100, 150))

	dec, err := e.Check(ctx, "mapper", Cost{Amount: 100})
	require.NoError(t, err)
	require.True(t, dec.Allowed)

	// Next day the daily counter is fresh but the monthly ceiling binds.
	now = now.AddDate(0, 0, 1)
	dec, err = e.Check(ctx, "mapper", Cost{Amount: 100})
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	assert.Contains(t, dec.Reason, "monthly limit exceeded")
}

func TestEnforcer_FailsClosed(t *testing.T) {
	e := NewEnforcer(failingStorage{})

	dec, err := e.Check(context.Background(), "mapper", Cost{Amount: 1})
	require.Error(t, err)
	assert.False(t, dec.Allowed)
}

func TestEnforcer_DefaultLimits(t *testing.T) {
	e := NewEnforcer(NewMemoryStorage())

	b, err := e.GetBudget(context.Background(), "new-producer")
	require.NoError(t, err)
	assert.Equal(t, int64(DefaultDailyLimitCents), b.DailyLimit)
	assert.Equal(t, int64(DefaultMonthlyLimitCents), b.MonthlyLimit)
}

func TestEnforcer_ConcurrentReservations(t *testing.T) {
	e := NewEnforcer(NewMemoryStorage())
	ctx := context.Background()
	require.NoError(t, e.SetLimits(ctx, "mapper", 500, 10000))

	var wg sync.WaitGroup
	allowed := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dec, err := e.Check(ctx, "mapper", Cost{Amount: 100})
			assert.NoError(t, err)
			allowed <- dec.Allowed
		}()
	}
	wg.Wait()
	close(allowed)

	// Exactly five reservations fit under the 500-cent ceiling.
	count := 0
	for ok := range allowed {
		if ok {
			count++
		}
	}
	assert.Equal(t, 5, count)
}
