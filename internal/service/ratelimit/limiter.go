package ratelimit

import (
	"context"
	"sync"
	"time"
)

type bucket struct {
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per second
	last       time.Time
}

// Limiter is a per-key token bucket. Free-tier market data APIs throttle
// hard, so each provider gets its own bucket keyed by name.
type Limiter struct {
	mu       sync.Mutex
	m        map[string]*bucket
	capacity float64
	refill   float64
	rates    map[string][2]float64 // key -> {capacity, refillPerSec}
}

// New creates a limiter with a default rate for unknown keys.
func New(defaultCapacity, defaultRefillPerSec float64) *Limiter {
	return &Limiter{
		m:        make(map[string]*bucket),
		capacity: defaultCapacity,
		refill:   defaultRefillPerSec,
		rates:    make(map[string][2]float64),
	}
}

// SetRate overrides capacity and refill for one key.
func (l *Limiter) SetRate(key string, capacity, refillPerSec float64) {
	l.mu.Lock()
	l.rates[key] = [2]float64{capacity, refillPerSec}
	delete(l.m, key)
	l.mu.Unlock()
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.take(key) <= 0
}

// Wait blocks until a token is available for key or ctx is done.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	for {
		l.mu.Lock()
		wait := l.take(key)
		l.mu.Unlock()

		if wait <= 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// take consumes a token if available and returns 0, otherwise the duration
// until one refills. Caller holds the lock.
func (l *Limiter) take(key string) time.Duration {
	now := time.Now()
	b, ok := l.m[key]
	if !ok {
		capacity, refill := l.capacity, l.refill
		if r, found := l.rates[key]; found {
			capacity, refill = r[0], r[1]
		}
		b = &bucket{tokens: capacity, capacity: capacity, refillRate: refill, last: now}
		l.m[key] = b
	}

	elapsed := now.Sub(b.last).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * b.refillRate
		if b.tokens > b.capacity {
			b.tokens = b.capacity
		}
		b.last = now
	}

	if b.tokens >= 1 {
		b.tokens -= 1
		return 0
	}

	if b.refillRate <= 0 {
		return time.Second
	}
	missing := 1 - b.tokens
	return time.Duration(missing / b.refillRate * float64(time.Second))
}
