// Package invalidate publishes cache-invalidation hooks. The engine
// triggers them on link promotion and on new index snapshots; the
// caching layer that consumes them lives outside this repository.
package invalidate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Channel names consumed by the web layer's cache.
const (
	ChannelLinks = "vantage:invalidate:links"
	ChannelIndex = "vantage:invalidate:index"
)

// Invalidator receives change notifications. Implementations must be
// best-effort: a failed publish is reported but never blocks or undoes
// the mutation that triggered it.
type Invalidator interface {
	LinksChanged(ctx context.Context, signpostCode string) error
	IndexChanged(ctx context.Context, day time.Time) error
}

// RedisInvalidator publishes invalidation messages over Redis pub/sub.
type RedisInvalidator struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisInvalidator connects a publisher to the given Redis address.
func NewRedisInvalidator(addr, password string, db int) *RedisInvalidator {
	return &RedisInvalidator{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		logger: slog.Default().With("component", "invalidate"),
	}
}

func (r *RedisInvalidator) LinksChanged(ctx context.Context, signpostCode string) error {
	if err := r.client.Publish(ctx, ChannelLinks, signpostCode).Err(); err != nil {
		return fmt.Errorf("links invalidation publish failed: %w", err)
	}
	return nil
}

func (r *RedisInvalidator) IndexChanged(ctx context.Context, day time.Time) error {
	if err := r.client.Publish(ctx, ChannelIndex, day.UTC().Format("2006-01-02")).Err(); err != nil {
		return fmt.Errorf("index invalidation publish failed: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (r *RedisInvalidator) Close() error { return r.client.Close() }

// Noop discards all notifications, for tests and single-node setups
// without a cache.
type Noop struct{}

func (Noop) LinksChanged(context.Context, string) error { return nil }
func (Noop) IndexChanged(context.Context, time.Time) error { return nil }
