// internal/pkg/locker/locker.go
package locker

import (
	"context"
	"errors"
	"fmt"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/trading-backend/internal/config"
)

// ErrNotObtained is returned when a lock cannot be acquired within the
// configured retry budget.
var ErrNotObtained = errors.New("lock not obtained")

// Locker serializes operations on shared resources (a lot's stock level, an
// order's recalculation cycle) across requests and processes.
type Locker struct {
	client *redislock.Client
	config *config.Config
}

// New creates a Locker backed by the given Redis client.
func New(rdb redis.UniversalClient, cfg *config.Config) *Locker {
	return &Locker{
		client: redislock.New(rdb),
		config: cfg,
	}
}

// Lock acquires a named lock, retrying at the configured interval until the
// retry budget is exhausted. The returned release function is safe to defer.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	backoff := redislock.LimitRetry(
		redislock.LinearBackoff(l.config.Locking.RetryInterval),
		l.config.Locking.RetryCount,
	)

	lock, err := l.client.Obtain(ctx, key, l.config.Locking.TTL, &redislock.Options{
		RetryStrategy: backoff,
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", ErrNotObtained, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}

	release := func() {
		_ = lock.Release(context.WithoutCancel(ctx))
	}
	return release, nil
}

// LotKey is the lock key guarding a lot's stock check-and-decrement.
func LotKey(lotID uint) string {
	return fmt.Sprintf("lock:lot:%d", lotID)
}

// OrderKey is the lock key guarding an order's recalculation cycle.
func OrderKey(orderID uint) string {
	return fmt.Sprintf("lock:order:%d", orderID)
}
