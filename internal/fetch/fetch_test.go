package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainFirstProviderWins(t *testing.T) {
	second := false
	chain := NewChain[[]string]("news", nil, nil,
		Provider[[]string]{
			Name:  "primary",
			Fetch: func(ctx context.Context) ([]string, error) { return []string{"a"}, nil },
		},
		Provider[[]string]{
			Name: "secondary",
			Fetch: func(ctx context.Context) ([]string, error) {
				second = true
				return []string{"b"}, nil
			},
		},
	)

	got, source, err := chain.First(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got)
	assert.Equal(t, "primary", source)
	assert.False(t, second, "later providers must not run once one succeeds")
}

func TestChainFallsBackOnError(t *testing.T) {
	chain := NewChain[int]("market_data", nil, nil,
		Provider[int]{
			Name:  "down",
			Fetch: func(ctx context.Context) (int, error) { return 0, errors.New("503") },
		},
		Provider[int]{
			Name:  "up",
			Fetch: func(ctx context.Context) (int, error) { return 7, nil },
		},
	)

	got, source, err := chain.First(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, got)
	assert.Equal(t, "up", source)
}

func TestChainFallsBackOnEmpty(t *testing.T) {
	chain := NewChain[[]int]("news", nil, nil,
		Provider[[]int]{
			Name:  "empty",
			Fetch: NonEmptySlice(func(ctx context.Context) ([]int, error) { return nil, nil }),
		},
		Provider[[]int]{
			Name:  "full",
			Fetch: NonEmptySlice(func(ctx context.Context) ([]int, error) { return []int{1, 2}, nil }),
		},
	)

	got, source, err := chain.First(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, got)
	assert.Equal(t, "full", source)
}

func TestChainExhausted(t *testing.T) {
	chain := NewChain[int]("market_data", nil, nil,
		Provider[int]{
			Name:  "a",
			Fetch: func(ctx context.Context) (int, error) { return 0, errors.New("boom") },
		},
		Provider[int]{
			Name:  "b",
			Fetch: func(ctx context.Context) (int, error) { return 0, ErrEmpty },
		},
	)

	_, _, err := chain.First(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Contains(t, err.Error(), "a: boom")
	assert.Contains(t, err.Error(), "b:")
}

func TestChainEmptyChain(t *testing.T) {
	chain := NewChain[int]("market_data", nil, nil)
	_, _, err := chain.First(context.Background())
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestChainPerProviderTimeout(t *testing.T) {
	chain := NewChain[int]("market_data", nil, nil,
		Provider[int]{
			Name:    "slow",
			Timeout: 20 * time.Millisecond,
			Fetch: func(ctx context.Context) (int, error) {
				select {
				case <-ctx.Done():
					return 0, ctx.Err()
				case <-time.After(time.Second):
					return 1, nil
				}
			},
		},
		Provider[int]{
			Name:  "fast",
			Fetch: func(ctx context.Context) (int, error) { return 2, nil },
		},
	)

	got, source, err := chain.First(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, got)
	assert.Equal(t, "fast", source)
}

func TestChainStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	chain := NewChain[int]("market_data", nil, nil,
		Provider[int]{
			Name:  "never",
			Fetch: func(ctx context.Context) (int, error) { return 1, nil },
		},
	)

	_, _, err := chain.First(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
