package marketdata

import (
	"context"
	"time"

	"wisetrade/internal/domain/models"
	"wisetrade/internal/domain/repository"
	"wisetrade/internal/fetch"
	"wisetrade/pkg/logger"
)

// Source produces daily OHLCV bars for a ticker.
type Source interface {
	DailyBars(ctx context.Context, ticker string, lookbackDays int) ([]models.Bar, error)
}

// ChainConfig wires the fallback order for bar fetching.
type ChainConfig struct {
	Yahoo        *YahooClient
	AlphaVantage *AlphaVantageClient
	FMP          *FMPClient
	Timeout      time.Duration
	Log          *logger.Logger
	Metrics      repository.Metrics
}

// Fetcher runs the market data fallback chain for one ticker at a time.
type Fetcher struct {
	cfg ChainConfig
}

func NewFetcher(cfg ChainConfig) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	return &Fetcher{cfg: cfg}
}

// DailyBars tries Yahoo, then Alpha Vantage, then FMP. Providers without an
// API key are skipped up front rather than burning a chain slot.
func (f *Fetcher) DailyBars(ctx context.Context, ticker string, lookbackDays int) ([]models.Bar, string, error) {
	providers := make([]fetch.Provider[[]models.Bar], 0, 3)

	if f.cfg.Yahoo != nil {
		providers = append(providers, fetch.Provider[[]models.Bar]{
			Name:    "yahoo",
			Timeout: f.cfg.Timeout,
			Fetch: fetch.NonEmptySlice(func(ctx context.Context) ([]models.Bar, error) {
				return f.cfg.Yahoo.DailyBars(ctx, ticker, lookbackDays)
			}),
		})
	}
	if f.cfg.AlphaVantage != nil && f.cfg.AlphaVantage.Enabled() {
		providers = append(providers, fetch.Provider[[]models.Bar]{
			Name:    "alphavantage",
			Timeout: f.cfg.Timeout,
			Fetch: fetch.NonEmptySlice(func(ctx context.Context) ([]models.Bar, error) {
				return f.cfg.AlphaVantage.DailyBars(ctx, ticker, lookbackDays)
			}),
		})
	}
	if f.cfg.FMP != nil && f.cfg.FMP.Enabled() {
		providers = append(providers, fetch.Provider[[]models.Bar]{
			Name:    "fmp",
			Timeout: f.cfg.Timeout,
			Fetch: fetch.NonEmptySlice(func(ctx context.Context) ([]models.Bar, error) {
				return f.cfg.FMP.DailyBars(ctx, ticker, lookbackDays)
			}),
		})
	}

	chain := fetch.NewChain("market_data", f.cfg.Log, f.cfg.Metrics, providers...)
	return chain.First(ctx)
}
