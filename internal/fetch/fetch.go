package fetch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wisetrade/internal/domain/repository"
	"wisetrade/pkg/logger"
)

// ErrExhausted reports that every provider in a chain failed or returned
// nothing usable.
var ErrExhausted = errors.New("fetch: all providers exhausted")

// ErrEmpty signals a provider answered successfully but had no data. The
// chain treats it like a failure and moves on to the next provider.
var ErrEmpty = errors.New("fetch: provider returned no data")

// Provider is one link of a fallback chain.
type Provider[T any] struct {
	Name    string
	Timeout time.Duration
	Fetch   func(ctx context.Context) (T, error)
}

// Chain tries providers in order and returns the first usable result.
type Chain[T any] struct {
	kind      string
	providers []Provider[T]
	log       *logger.Logger
	metrics   repository.Metrics
}

// NewChain builds a fallback chain. kind labels the chain in logs and
// metrics (market_data, news, holdings, ...).
func NewChain[T any](kind string, log *logger.Logger, metrics repository.Metrics, providers ...Provider[T]) *Chain[T] {
	if log == nil {
		log = logger.Nop()
	}
	return &Chain[T]{kind: kind, providers: providers, log: log, metrics: metrics}
}

// First runs the chain. Providers are tried strictly in order; a provider
// error or empty result moves on to the next. The returned error wraps
// ErrExhausted when nothing succeeded, with per-provider causes preserved
// in the message.
func (c *Chain[T]) First(ctx context.Context) (T, string, error) {
	var zero T
	if len(c.providers) == 0 {
		return zero, "", fmt.Errorf("%w: %s chain is empty", ErrExhausted, c.kind)
	}

	var causes []string
	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return zero, "", err
		}

		result, err := c.tryOne(ctx, p)
		if err == nil {
			c.record(p.Name, "ok")
			return result, p.Name, nil
		}

		c.record(p.Name, outcome(err))
		c.log.Warn("provider failed, falling back",
			logger.String("kind", c.kind),
			logger.String("provider", p.Name),
			logger.Error(err),
		)
		causes = append(causes, fmt.Sprintf("%s: %v", p.Name, err))
	}

	return zero, "", fmt.Errorf("%w: %s (%s)", ErrExhausted, c.kind, strings.Join(causes, "; "))
}

func (c *Chain[T]) tryOne(ctx context.Context, p Provider[T]) (T, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	return p.Fetch(ctx)
}

func (c *Chain[T]) record(provider, result string) {
	if c.metrics != nil {
		c.metrics.RecordProviderFetch(provider, c.kind, result)
	}
}

func outcome(err error) string {
	if errors.Is(err, ErrEmpty) {
		return "empty"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "error"
}

// NonEmptySlice adapts a slice-returning fetch so an empty slice counts as
// ErrEmpty and triggers fallback.
func NonEmptySlice[E any](fn func(ctx context.Context) ([]E, error)) func(ctx context.Context) ([]E, error) {
	return func(ctx context.Context) ([]E, error) {
		out, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		if len(out) == 0 {
			return nil, ErrEmpty
		}
		return out, nil
	}
}
