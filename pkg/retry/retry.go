package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// permanentError wraps an error that should not be retried.
type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as non-retryable. Do returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Config holds retry behaviour.
type Config struct {
	Attempts int
	BaseWait time.Duration
	Jitter   time.Duration
}

// Option configures Do.
type Option func(*Config)

func WithAttempts(n int) Option {
	return func(c *Config) { c.Attempts = n }
}

func WithBaseWait(d time.Duration) Option {
	return func(c *Config) { c.BaseWait = d }
}

func WithJitter(d time.Duration) Option {
	return func(c *Config) { c.Jitter = d }
}

// Do runs fn up to Attempts times with linearly growing backoff plus jitter.
// It stops early on success, a Permanent error, or context cancellation.
func Do(ctx context.Context, fn func(ctx context.Context) error, opts ...Option) error {
	cfg := &Config{
		Attempts: 3,
		BaseWait: 1500 * time.Millisecond,
		Jitter:   400 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		lastErr = err

		if attempt == cfg.Attempts {
			break
		}

		wait := time.Duration(attempt) * cfg.BaseWait
		if cfg.Jitter > 0 {
			wait += time.Duration(rand.Int63n(int64(cfg.Jitter)))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	return lastErr
}
