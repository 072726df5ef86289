package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"Wire/internal/kv"
)

// Limiter enforces fixed-window counters in the kv tier. Windows are
// keyed rl:{bucket}:{key} and expire on their own; the first hit in a
// window sets the TTL.
type Limiter struct {
	store kv.Store
}

func NewLimiter(store kv.Store) *Limiter {
	return &Limiter{store: store}
}

// KeyRate is the KV key for one window counter.
func KeyRate(bucket, key string) string { return fmt.Sprintf("rl:%s:%s", bucket, key) }

// Allow counts a hit and reports whether it is within max for the
// window. Store errors propagate; callers decide the failure posture.
func (l *Limiter) Allow(ctx context.Context, bucket, key string, max int, window time.Duration) (bool, error) {
	k := KeyRate(bucket, key)
	n, err := l.store.Incr(ctx, k)
	if err != nil {
		return false, fmt.Errorf("rate counter %s: %w", k, err)
	}
	if n == 1 {
		if err := l.store.Expire(ctx, k, window); err != nil {
			return false, fmt.Errorf("rate window %s: %w", k, err)
		}
	}
	return n <= int64(max), nil
}

// Count reads the current window counter without touching it.
func (l *Limiter) Count(ctx context.Context, bucket, key string) (int64, error) {
	raw, err := l.store.Get(ctx, KeyRate(bucket, key))
	if errors.Is(err, kv.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt rate counter %s: %w", KeyRate(bucket, key), err)
	}
	return n, nil
}

// Reset clears the window, e.g. the failure counter after a successful
// login.
func (l *Limiter) Reset(ctx context.Context, bucket, key string) error {
	return l.store.Delete(ctx, KeyRate(bucket, key))
}
