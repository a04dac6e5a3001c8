package repository

import (
	"context"
	"time"

	"wisetrade/internal/domain/models"
)

// BarStore persists and reads daily OHLCV history.
type BarStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	StoreBatch(ctx context.Context, bars []models.Bar) error
	Query(ctx context.Context, ticker string, from, to time.Time) ([]models.Bar, error)
	LastSession(ctx context.Context, ticker string) (time.Time, error)
	Health(ctx context.Context) error
	Close() error
}

// IndicatorStore persists dated indicator series, upserting on
// (ticker, name, session date).
type IndicatorStore interface {
	StorePoints(ctx context.Context, points []models.IndicatorPoint) error
	Latest(ctx context.Context, ticker string) (models.IndicatorSet, time.Time, error)
}

// ArticleStore persists fetched headlines, deduplicated by URL.
type ArticleStore interface {
	Upsert(ctx context.Context, articles []models.Article) error
	Recent(ctx context.Context, ticker string, since time.Time, limit int) ([]models.Article, error)
}

// SentimentStore memoizes classified sentiment per (ticker, UTC day).
type SentimentStore interface {
	Get(ctx context.Context, ticker, day string) (*models.SentimentResult, error)
	Put(ctx context.Context, result *models.SentimentResult) error
}

// PortfolioStore reads portfolios and their positions.
type PortfolioStore interface {
	Get(ctx context.Context, id uint) (*models.Portfolio, error)
	List(ctx context.Context, owner string) ([]models.Portfolio, error)
	Save(ctx context.Context, p *models.Portfolio) error
}

// AdviceStore persists issued recommendations. Portfolio advice upserts on
// (portfolio, ticker); ad-hoc advice appends to the history log.
type AdviceStore interface {
	Save(ctx context.Context, advice *models.Advice) error
	History(ctx context.Context, ticker string, limit int) ([]models.Advice, error)
	ForPortfolio(ctx context.Context, portfolioID uint) ([]models.Advice, error)
}

// Metrics records operational telemetry.
type Metrics interface {
	RecordProviderFetch(provider, kind, result string)
	RecordLLMCall(purpose, result string)
	RecordCacheLookup(kind, result string)
	RecordAdvice(action string)
	RecordError(kind string)
	RecordLastPrice(ticker string, price float64)
	RecordStageDuration(stage string, seconds float64)
}
