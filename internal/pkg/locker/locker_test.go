package locker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/trading-backend/internal/config"
)

func setupLocker(t *testing.T) *Locker {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cfg := &config.Config{}
	cfg.Locking.TTL = 2 * time.Second
	cfg.Locking.RetryInterval = 10 * time.Millisecond
	cfg.Locking.RetryCount = 5
	return New(rdb, cfg)
}

func TestLock_AcquireAndRelease(t *testing.T) {
	l := setupLocker(t)
	ctx := context.Background()

	release, err := l.Lock(ctx, OrderKey(1))
	require.NoError(t, err)
	release()

	// Released lock can be re-acquired immediately.
	release, err = l.Lock(ctx, OrderKey(1))
	require.NoError(t, err)
	release()
}

func TestLock_ContendedKeyFailsAfterRetries(t *testing.T) {
	l := setupLocker(t)
	ctx := context.Background()

	release, err := l.Lock(ctx, LotKey(7))
	require.NoError(t, err)
	defer release()

	_, err = l.Lock(ctx, LotKey(7))
	assert.ErrorIs(t, err, ErrNotObtained)
}

func TestLock_DistinctKeysDoNotContend(t *testing.T) {
	l := setupLocker(t)
	ctx := context.Background()

	r1, err := l.Lock(ctx, LotKey(1))
	require.NoError(t, err)
	defer r1()

	r2, err := l.Lock(ctx, LotKey(2))
	require.NoError(t, err)
	defer r2()
}
