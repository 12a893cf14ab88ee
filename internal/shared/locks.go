package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrLocked is returned when another process holds the lock.
var ErrLocked = fmt.Errorf("resource busy: %w", ErrConflict)

// StockInLockKey builds redis keys guarding stock-in completion.
func StockInLockKey(stockInID string) string {
	return fmt.Sprintf("stockin:%s:lock", stockInID)
}

// SequenceLockKey builds redis keys guarding code generation per sequence.
func SequenceLockKey(name string) string {
	return fmt.Sprintf("sequence:%s:lock", name)
}

// Locker serialises critical sections across processes using Redis.
type Locker struct {
	client *redislock.Client
	ttl    time.Duration
	retry  redislock.RetryStrategy
}

// NewLocker builds a Locker. A nil client yields a Locker that never blocks.
func NewLocker(rdb *redis.Client, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	var client *redislock.Client
	if rdb != nil {
		client = redislock.New(rdb)
	}
	return &Locker{
		client: client,
		ttl:    ttl,
		retry:  redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 20),
	}
}

// WithLock runs fn while holding key.
func (l *Locker) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	if l == nil || l.client == nil {
		return fn(ctx)
	}
	lock, err := l.client.Obtain(ctx, key, l.ttl, &redislock.Options{RetryStrategy: l.retry})
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return ErrLocked
		}
		return fmt.Errorf("obtain lock %s: %w", key, err)
	}
	defer func() {
		_ = lock.Release(context.WithoutCancel(ctx))
	}()
	return fn(ctx)
}
