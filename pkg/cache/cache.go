package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Service defines cache operations. Implementations must be safe for
// concurrent use; last-writer-wins races are acceptable. Backend failures
// are reported as errors so callers can treat them as misses.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (bool, error)
}

// GetOr loads key into a T, falling back to compute on any miss or backend
// error and storing the result best-effort. A broken cache never fails the
// caller; it only costs the recomputation.
func GetOr[T any](ctx context.Context, c Service, key string, ttl time.Duration, compute func(ctx context.Context) (T, error)) (T, error) {
	var cached T
	if c != nil {
		if err := c.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	val, err := compute(ctx)
	if err != nil {
		return val, err
	}
	if c != nil {
		_ = c.Set(ctx, key, val, ttl)
	}
	return val, nil
}
