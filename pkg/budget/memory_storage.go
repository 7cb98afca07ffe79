package budget

import (
	"context"
	"sync"
)

// Default allowances for producers with no configured limits.
const (
	DefaultDailyLimitCents   = 1000  // $10/day
	DefaultMonthlyLimitCents = 50000 // $500/month
)

// MemoryStorage implements Storage in memory.
type MemoryStorage struct {
	mu      sync.RWMutex
	budgets map[string]*Budget
	limits  map[string]struct{ d, m int64 }
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		budgets: make(map[string]*Budget),
		limits:  make(map[string]struct{ d, m int64 }),
	}
}

func (s *MemoryStorage) Get(_ context.Context, producer string) (*Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b, ok := s.budgets[producer]; ok {
		val := *b
		return &val, nil
	}
	return nil, nil // not found is valid, the enforcer initializes
}

func (s *MemoryStorage) Set(_ context.Context, b *Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	val := *b
	s.budgets[b.Producer] = &val
	return nil
}

func (s *MemoryStorage) Limits(_ context.Context, producer string) (int64, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if l, ok := s.limits[producer]; ok {
		return l.d, l.m, nil
	}
	return DefaultDailyLimitCents, DefaultMonthlyLimitCents, nil
}

func (s *MemoryStorage) SetLimits(_ context.Context, producer string, daily, monthly int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limits[producer] = struct{ d, m int64 }{daily, monthly}
	if b, ok := s.budgets[producer]; ok {
		b.DailyLimit = daily
		b.MonthlyLimit = monthly
	}
	return nil
}
