package news

import (
	"context"
	"time"

	"wisetrade/internal/domain/models"
	"wisetrade/internal/domain/repository"
	"wisetrade/internal/fetch"
	"wisetrade/pkg/logger"
)

// Source produces recent headlines for a ticker.
type Source interface {
	Headlines(ctx context.Context, ticker string, limit int) ([]models.Article, error)
}

// ChainConfig wires the fallback order for headline fetching.
type ChainConfig struct {
	Yahoo        *YahooClient
	AlphaVantage *AlphaVantageClient
	RSS          *RSSClient
	DuckDuckGo   *DuckDuckGoClient
	Timeout      time.Duration
	Log          *logger.Logger
	Metrics      repository.Metrics
}

// Fetcher runs the news fallback chain. The first vendor returning at least
// one headline wins; later vendors are never consulted.
type Fetcher struct {
	cfg ChainConfig
}

func NewFetcher(cfg ChainConfig) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	return &Fetcher{cfg: cfg}
}

func (f *Fetcher) Headlines(ctx context.Context, ticker string, limit int) ([]models.Article, string, error) {
	providers := make([]fetch.Provider[[]models.Article], 0, 4)
	add := func(name string, src Source) {
		providers = append(providers, fetch.Provider[[]models.Article]{
			Name:    name,
			Timeout: f.cfg.Timeout,
			Fetch: fetch.NonEmptySlice(func(ctx context.Context) ([]models.Article, error) {
				return src.Headlines(ctx, ticker, limit)
			}),
		})
	}

	if f.cfg.Yahoo != nil {
		add("yahoo", f.cfg.Yahoo)
	}
	if f.cfg.AlphaVantage != nil && f.cfg.AlphaVantage.Enabled() {
		add("alphavantage", f.cfg.AlphaVantage)
	}
	if f.cfg.RSS != nil {
		add("yahoo_rss", f.cfg.RSS)
	}
	if f.cfg.DuckDuckGo != nil {
		add("duckduckgo", f.cfg.DuckDuckGo)
	}

	chain := fetch.NewChain("news", f.cfg.Log, f.cfg.Metrics, providers...)
	return chain.First(ctx)
}
