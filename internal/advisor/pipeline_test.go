package advisor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wisetrade/internal/domain/models"
)

type fakeMarket struct {
	bars []models.Bar
	err  error
}

func (f *fakeMarket) History(ctx context.Context, ticker string, lookbackDays int) ([]models.Bar, error) {
	return f.bars, f.err
}

type fakeEngine struct {
	set models.IndicatorSet
}

func (f *fakeEngine) ComputeSeries(bars []models.Bar) []models.IndicatorPoint {
	if len(bars) == 0 {
		return nil
	}
	last := bars[len(bars)-1]
	points := make([]models.IndicatorPoint, 0, len(f.set))
	for name, value := range f.set {
		points = append(points, models.IndicatorPoint{
			Ticker:    last.Ticker,
			Name:      name,
			SessionAt: last.SessionAt,
			Value:     value,
		})
	}
	return points
}

type fakeClassifier struct {
	result *models.SentimentResult
	err    error
	calls  int
}

func (f *fakeClassifier) Classify(ctx context.Context, ticker string, headlines []string) (*models.SentimentResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeBaskets struct {
	basket *models.Basket
	err    error
}

func (f *fakeBaskets) Decompose(ctx context.Context, ticker string) (*models.Basket, error) {
	return f.basket, f.err
}

type fakeScorer struct {
	result *models.SentimentResult
	calls  int
}

func (f *fakeScorer) Aggregate(ctx context.Context, basket *models.Basket) (*models.SentimentResult, error) {
	f.calls++
	return f.result, nil
}

type fakeMacro struct {
	snap *models.MacroSnapshot
}

func (f *fakeMacro) Snapshot(ctx context.Context) *models.MacroSnapshot { return f.snap }

type fakeHeadlines struct {
	titles []string
	err    error
}

func (f *fakeHeadlines) HeadlineTitles(ctx context.Context, ticker string, limit int) ([]string, error) {
	return f.titles, f.err
}

// captureSynth records the state it saw and returns a fixed advice.
type captureSynth struct {
	state  *models.PipelineState
	advice *models.Advice
	err    error
}

func (s *captureSynth) Synthesize(ctx context.Context, state *models.PipelineState) (*models.Advice, error) {
	s.state = state
	if s.err != nil {
		return nil, s.err
	}
	if s.advice != nil {
		return s.advice, nil
	}
	return &models.Advice{
		Ticker:     state.Ticker,
		Action:     models.ActionHold,
		Confidence: 0.5,
		CreatedAt:  state.AsOf,
	}, nil
}

func (s *captureSynth) Name() string { return "capture" }

type memAdviceStore struct {
	saved []*models.Advice
}

func (m *memAdviceStore) Save(ctx context.Context, advice *models.Advice) error {
	m.saved = append(m.saved, advice)
	return nil
}

func (m *memAdviceStore) History(ctx context.Context, ticker string, limit int) ([]models.Advice, error) {
	return nil, nil
}

func (m *memAdviceStore) ForPortfolio(ctx context.Context, portfolioID uint) ([]models.Advice, error) {
	var out []models.Advice
	for _, a := range m.saved {
		if a.PortfolioID == portfolioID {
			out = append(out, *a)
		}
	}
	return out, nil
}

type fakePortfolios struct {
	portfolio *models.Portfolio
	err       error
}

func (f *fakePortfolios) Get(ctx context.Context, id uint) (*models.Portfolio, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.portfolio, nil
}

func (f *fakePortfolios) List(ctx context.Context, owner string) ([]models.Portfolio, error) {
	if f.portfolio == nil {
		return nil, nil
	}
	return []models.Portfolio{*f.portfolio}, nil
}

func (f *fakePortfolios) Save(ctx context.Context, p *models.Portfolio) error { return nil }

type fakeRisk struct {
	metrics *models.RiskMetrics
	calls   int
}

func (f *fakeRisk) Analyse(ctx context.Context, p *models.Portfolio) *models.RiskMetrics {
	f.calls++
	return f.metrics
}

func sampleBars(n int) []models.Bar {
	bars := make([]models.Bar, n)
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		price := 100 + float64(i)
		bars[i] = models.Bar{
			Ticker:    "AAPL",
			SessionAt: day.AddDate(0, 0, i),
			Open:      price,
			High:      price + 1,
			Low:       price - 1,
			Close:     price,
			Volume:    1000,
		}
	}
	return bars
}

func TestPipelineHappyPath(t *testing.T) {
	synth := &captureSynth{}
	store := &memAdviceStore{}
	p := NewPipeline(Config{}, Deps{
		Market:     &fakeMarket{bars: sampleBars(10)},
		Engine:     &fakeEngine{set: models.IndicatorSet{"SMA_50": 104.5, "RSI_14": 60}},
		News:       &fakeHeadlines{titles: []string{"Apple beats estimates"}},
		Classifier: &fakeClassifier{result: &models.SentimentResult{Ticker: "AAPL", Score: 0.6, Summary: "upbeat"}},
		Macro:      &fakeMacro{snap: &models.MacroSnapshot{Regime: models.RegimeRiskOn, VIX: 14}},
		Synth:      synth,
		Advices:    store,
	})

	advice, err := p.Advise(context.Background(), "AAPL")
	require.NoError(t, err)
	require.NotNil(t, advice)

	require.NotNil(t, synth.state)
	assert.Len(t, synth.state.Bars, 10)
	require.NotNil(t, synth.state.LastPrice)
	assert.InDelta(t, 109, synth.state.LastPrice.Price, 1e-9)
	assert.Equal(t, 60.0, synth.state.Indicators["RSI_14"])
	require.NotNil(t, synth.state.Sentiment)
	assert.InDelta(t, 0.6, synth.state.Sentiment.Score, 1e-9)
	require.NotNil(t, synth.state.Macro)
	assert.Equal(t, models.RegimeRiskOn, synth.state.Macro.Regime)

	assert.Equal(t, models.StageOK, synth.state.Stages[StageMarket])
	assert.Equal(t, models.StageOK, synth.state.Stages[StageTechnical])
	assert.Equal(t, models.StageSkipped, synth.state.Stages[StageRisk], "no portfolio given")
	assert.Equal(t, models.StageOK, synth.state.Stages[StageNewsMacro])
	assert.Equal(t, models.StageOK, synth.state.Stages[StageSynthesis])

	require.Len(t, store.saved, 1)
	assert.Equal(t, advice, store.saved[0])
}

func TestPipelineForPortfolioRunsRiskAndKeysAdvice(t *testing.T) {
	vol := 0.18
	synth := &captureSynth{}
	store := &memAdviceStore{}
	risk := &fakeRisk{metrics: &models.RiskMetrics{Volatility: &vol}}
	p := NewPipeline(Config{}, Deps{
		Market: &fakeMarket{bars: sampleBars(10)},
		Risk:   risk,
		Portfolios: &fakePortfolios{portfolio: &models.Portfolio{
			ID:        7,
			Name:      "core",
			Positions: []models.Position{{Ticker: "AAPL", Quantity: 10}},
		}},
		Synth:   synth,
		Advices: store,
	})

	advice, err := p.AdviseForPortfolio(context.Background(), "AAPL", 7)
	require.NoError(t, err)
	require.NotNil(t, advice)

	assert.Equal(t, 1, risk.calls)
	assert.Equal(t, models.StageOK, synth.state.Stages[StageRisk])
	require.NotNil(t, synth.state.Risk)

	assert.Equal(t, uint(7), advice.PortfolioID)
	require.Len(t, store.saved, 1)
	assert.Equal(t, uint(7), store.saved[0].PortfolioID)
}

func TestPipelineAdHocAdviceHasNoPortfolioKey(t *testing.T) {
	store := &memAdviceStore{}
	p := NewPipeline(Config{}, Deps{
		Synth:   &captureSynth{},
		Advices: store,
	})

	advice, err := p.Advise(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Zero(t, advice.PortfolioID)
}

func TestPipelineMarketFailureDegrades(t *testing.T) {
	synth := &captureSynth{}
	p := NewPipeline(Config{}, Deps{
		Market:     &fakeMarket{err: errors.New("all providers down")},
		Engine:     &fakeEngine{},
		Classifier: &fakeClassifier{result: &models.SentimentResult{Summary: "No fresh headlines"}},
		Synth:      synth,
	})

	advice, err := p.Advise(context.Background(), "AAPL")
	require.NoError(t, err, "degraded inputs still produce advice")
	require.NotNil(t, advice)

	assert.Equal(t, models.StageFailed, synth.state.Stages[StageMarket])
	assert.Equal(t, models.StageSkipped, synth.state.Stages[StageTechnical])
	assert.Empty(t, synth.state.Bars)
	assert.NotEmpty(t, synth.state.Notes)
	assert.Contains(t, synth.state.Notes[0], "market unavailable")
}

func TestPipelineBasketUsesAggregator(t *testing.T) {
	classifier := &fakeClassifier{result: &models.SentimentResult{Score: 0.1}}
	scorer := &fakeScorer{result: &models.SentimentResult{Score: 0.4, Summary: "Aggregated sentiment for 2 constituents: AAPL: 0.60; MSFT: 0.20"}}
	synth := &captureSynth{}

	p := NewPipeline(Config{}, Deps{
		Market: &fakeMarket{bars: sampleBars(5)},
		Baskets: &fakeBaskets{basket: &models.Basket{
			Ticker: "QQQ",
			Holdings: []models.Holding{
				{Symbol: "AAPL", Weight: 0.6},
				{Symbol: "MSFT", Weight: 0.4},
			},
		}},
		Classifier: classifier,
		BasketAgg:  scorer,
		Synth:      synth,
	})

	_, err := p.Advise(context.Background(), "QQQ")
	require.NoError(t, err)

	assert.Equal(t, 1, scorer.calls)
	assert.Equal(t, 0, classifier.calls, "basket tickers bypass direct classification")
	require.NotNil(t, synth.state.Basket)
	assert.InDelta(t, 0.4, synth.state.Sentiment.Score, 1e-9)
}

func TestPipelineBasketFailureFallsBackToHeadlines(t *testing.T) {
	classifier := &fakeClassifier{result: &models.SentimentResult{Score: 0.2}}
	scorer := &fakeScorer{}
	synth := &captureSynth{}

	p := NewPipeline(Config{}, Deps{
		Baskets:    &fakeBaskets{err: errors.New("holdings providers exhausted")},
		News:       &fakeHeadlines{titles: []string{"headline"}},
		Classifier: classifier,
		BasketAgg:  scorer,
		Synth:      synth,
	})

	_, err := p.Advise(context.Background(), "QQQ")
	require.NoError(t, err)

	assert.Equal(t, 0, scorer.calls)
	assert.Equal(t, 1, classifier.calls)
}

func TestPipelinePlainTickerEmptyBasket(t *testing.T) {
	classifier := &fakeClassifier{result: &models.SentimentResult{Score: 0.2}}
	scorer := &fakeScorer{}
	synth := &captureSynth{}

	p := NewPipeline(Config{}, Deps{
		Baskets:    &fakeBaskets{basket: &models.Basket{Ticker: "AAPL"}},
		Classifier: classifier,
		BasketAgg:  scorer,
		Synth:      synth,
	})

	_, err := p.Advise(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, 0, scorer.calls)
	assert.Equal(t, 1, classifier.calls)
	assert.Nil(t, synth.state.Basket)
}

func TestPipelineCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPipeline(Config{}, Deps{Synth: &captureSynth{}})
	_, err := p.Advise(ctx, "AAPL")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPipelineSynthesizerErrorPropagates(t *testing.T) {
	p := NewPipeline(Config{}, Deps{
		Synth: &captureSynth{err: errors.New("model offline")},
	})

	_, err := p.Advise(context.Background(), "AAPL")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model offline")
}

func TestPipelineNewsErrorStillClassifies(t *testing.T) {
	classifier := &fakeClassifier{result: &models.SentimentResult{Summary: "No fresh headlines"}}
	synth := &captureSynth{}

	p := NewPipeline(Config{}, Deps{
		News:       &fakeHeadlines{err: errors.New("feeds down")},
		Classifier: classifier,
		Synth:      synth,
	})

	_, err := p.Advise(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 1, classifier.calls, "classifier still runs on empty headlines")

	found := false
	for _, n := range synth.state.Notes {
		if strings.Contains(n, "news degraded") {
			found = true
		}
	}
	assert.True(t, found, "news degradation is noted")
}
