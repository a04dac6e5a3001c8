package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wisetrade/internal/domain/models"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	store, err := NewGormStore("sqlite", ":memory:")
	require.NoError(t, err)
	return store
}

func TestArticleUpsertIgnoresDuplicates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	published := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	articles := []models.Article{
		{Ticker: "AAPL", Title: "first", URL: "https://news.example/1", PublishedAt: published},
		{Ticker: "AAPL", Title: "second", URL: "https://news.example/2", PublishedAt: published},
	}
	require.NoError(t, store.Upsert(ctx, articles))

	// same URL and timestamp again must not duplicate
	require.NoError(t, store.Upsert(ctx, articles[:1]))

	got, err := store.Recent(ctx, "AAPL", published.Add(-time.Hour), 10)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestArticleRecentFiltersByTimeAndTicker(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.Upsert(ctx, []models.Article{
		{Ticker: "AAPL", Title: "fresh", URL: "u1", PublishedAt: now.Add(-time.Hour)},
		{Ticker: "AAPL", Title: "stale", URL: "u2", PublishedAt: now.Add(-200 * time.Hour)},
		{Ticker: "MSFT", Title: "other", URL: "u3", PublishedAt: now.Add(-time.Hour)},
	}))

	got, err := store.Recent(ctx, "AAPL", now.Add(-72*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "fresh", got[0].Title)
}

func TestSentimentPutGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	in := &models.SentimentResult{
		Ticker:  "NVDA",
		Day:     "2024-05-01",
		Summary: "Bullish on earnings",
		Score:   0.7,
		AsOf:    time.Now().UTC(),
	}
	require.NoError(t, store.Put(ctx, in))

	got, err := store.Get(ctx, "NVDA", "2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, in.Summary, got.Summary)
	assert.InDelta(t, in.Score, got.Score, 1e-9)

	_, err = store.Get(ctx, "NVDA", "2024-05-02")
	assert.Error(t, err, "other days are not memoized")
}

func TestSentimentPutUpsertsSameDay(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, &models.SentimentResult{Ticker: "NVDA", Day: "2024-05-01", Summary: "old", Score: 0.1}))
	require.NoError(t, store.Put(ctx, &models.SentimentResult{Ticker: "NVDA", Day: "2024-05-01", Summary: "new", Score: 0.9}))

	got, err := store.Get(ctx, "NVDA", "2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Summary)
	assert.InDelta(t, 0.9, got.Score, 1e-9)
}

func TestPortfolioSaveAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	portfolios := store.Portfolios()

	p := &models.Portfolio{
		Name:  "growth",
		Owner: "alice",
		Positions: []models.Position{
			{Ticker: "AAPL", Quantity: 10, AvgPrice: 150},
			{Ticker: "MSFT", Quantity: 5, AvgPrice: 300},
		},
	}
	require.NoError(t, portfolios.Save(ctx, p))
	require.NotZero(t, p.ID)

	got, err := portfolios.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "growth", got.Name)
	assert.Len(t, got.Positions, 2)

	list, err := portfolios.List(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPortfolioSaveReplacesPositions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	portfolios := store.Portfolios()

	p := &models.Portfolio{
		Name:      "swing",
		Owner:     "bob",
		Positions: []models.Position{{Ticker: "AAPL", Quantity: 1, AvgPrice: 100}},
	}
	require.NoError(t, portfolios.Save(ctx, p))

	p.Positions = []models.Position{{Ticker: "TSLA", Quantity: 2, AvgPrice: 200}}
	require.NoError(t, portfolios.Save(ctx, p))

	got, err := portfolios.Get(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got.Positions, 1)
	assert.Equal(t, "TSLA", got.Positions[0].Ticker)
}

func TestAdviceHistoryNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	advices := store.Advices()

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, action := range []models.Action{models.ActionHold, models.ActionBuy, models.ActionSell} {
		require.NoError(t, advices.Save(ctx, &models.Advice{
			Ticker:      "AAPL",
			Action:      action,
			Confidence:  0.5,
			Rationale:   "r",
			Synthesizer: "rules",
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
		}))
	}

	got, err := advices.History(ctx, "AAPL", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, models.ActionSell, got[0].Action, "newest first")
	assert.Equal(t, models.ActionBuy, got[1].Action)
}

func TestAdviceUpsertPerPortfolio(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	advices := store.Advices()

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, advices.Save(ctx, &models.Advice{
		PortfolioID: 1, Ticker: "AAPL", Action: models.ActionBuy, Confidence: 0.6, CreatedAt: base,
	}))
	require.NoError(t, advices.Save(ctx, &models.Advice{
		PortfolioID: 1, Ticker: "AAPL", Action: models.ActionSell, Confidence: 0.8, CreatedAt: base.Add(time.Hour),
	}))

	got, err := advices.ForPortfolio(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1, "re-advising a position replaces the row")
	assert.Equal(t, models.ActionSell, got[0].Action)
	assert.InDelta(t, 0.8, got[0].Confidence, 1e-9)
}

func TestAdviceAdHocStaysAppendOnly(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	advices := store.Advices()

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, advices.Save(ctx, &models.Advice{
		Ticker: "AAPL", Action: models.ActionBuy, CreatedAt: base,
	}))
	require.NoError(t, advices.Save(ctx, &models.Advice{
		Ticker: "AAPL", Action: models.ActionHold, CreatedAt: base.Add(time.Hour),
	}))

	got, err := advices.History(ctx, "AAPL", 10)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestAdviceForPortfolioIsolated(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	advices := store.Advices()

	require.NoError(t, advices.Save(ctx, &models.Advice{PortfolioID: 1, Ticker: "AAPL", Action: models.ActionBuy}))
	require.NoError(t, advices.Save(ctx, &models.Advice{PortfolioID: 2, Ticker: "AAPL", Action: models.ActionSell}))

	got, err := advices.ForPortfolio(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.ActionSell, got[0].Action)
	assert.Equal(t, uint(2), got[0].PortfolioID)
}
