package holdings

import (
	"context"
	"time"

	"wisetrade/internal/domain/models"
	"wisetrade/internal/domain/repository"
	"wisetrade/internal/fetch"
	"wisetrade/pkg/logger"
)

// Source produces ETF constituents for a ticker.
type Source interface {
	TopHoldings(ctx context.Context, ticker string) ([]models.Holding, error)
}

// ChainConfig wires the fallback order for holdings lookups.
type ChainConfig struct {
	Yahoo   *YahooClient
	FMP     *FMPClient
	Timeout time.Duration
	Log     *logger.Logger
	Metrics repository.Metrics
}

// Fetcher runs the holdings fallback chain.
type Fetcher struct {
	cfg ChainConfig
}

func NewFetcher(cfg ChainConfig) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	return &Fetcher{cfg: cfg}
}

// TopHoldings tries Yahoo first, then FMP. A ticker with no constituents
// from either vendor is simply not a basket; callers treat ErrExhausted as
// "plain equity".
func (f *Fetcher) TopHoldings(ctx context.Context, ticker string) ([]models.Holding, string, error) {
	providers := make([]fetch.Provider[[]models.Holding], 0, 2)

	if f.cfg.Yahoo != nil {
		providers = append(providers, fetch.Provider[[]models.Holding]{
			Name:    "yahoo",
			Timeout: f.cfg.Timeout,
			Fetch: fetch.NonEmptySlice(func(ctx context.Context) ([]models.Holding, error) {
				return f.cfg.Yahoo.TopHoldings(ctx, ticker)
			}),
		})
	}
	if f.cfg.FMP != nil && f.cfg.FMP.Enabled() {
		providers = append(providers, fetch.Provider[[]models.Holding]{
			Name:    "fmp",
			Timeout: f.cfg.Timeout,
			Fetch: fetch.NonEmptySlice(func(ctx context.Context) ([]models.Holding, error) {
				return f.cfg.FMP.TopHoldings(ctx, ticker)
			}),
		})
	}

	chain := fetch.NewChain("holdings", f.cfg.Log, f.cfg.Metrics, providers...)
	return chain.First(ctx)
}
