package risk

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wisetrade/internal/domain/models"
)

// fakeBars serves pre-built histories keyed by ticker.
type fakeBars struct {
	series map[string][]models.Bar
}

func (f *fakeBars) History(ctx context.Context, ticker string, lookbackDays int) ([]models.Bar, error) {
	bars, ok := f.series[ticker]
	if !ok {
		return nil, fmt.Errorf("no history for %s", ticker)
	}
	return bars, nil
}

// dailyBars produces n sessions with closes generated by fn(i).
func dailyBars(ticker string, n int, fn func(i int) float64) []models.Bar {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, n)
	for i := range bars {
		bars[i] = models.Bar{
			Ticker:    ticker,
			SessionAt: day.AddDate(0, 0, i),
			Close:     fn(i),
		}
	}
	return bars
}

func TestAnalyseEmptyPortfolio(t *testing.T) {
	a := NewAnalyser(&fakeBars{}, "SPY", 252, nil)

	got := a.Analyse(context.Background(), &models.Portfolio{})
	assert.Equal(t, "portfolio has no market value", got.Note)
	assert.Nil(t, got.Volatility)
	assert.Nil(t, got.Beta)
	assert.Nil(t, got.VaR95)
}

func TestAnalyseZeroValuePositions(t *testing.T) {
	a := NewAnalyser(&fakeBars{}, "SPY", 252, nil)

	p := &models.Portfolio{Positions: []models.Position{
		{Ticker: "AAPL", Quantity: 10, AvgPrice: 0},
	}}
	got := a.Analyse(context.Background(), p)
	assert.Equal(t, "portfolio has no market value", got.Note)
}

func TestAnalyseInsufficientHistory(t *testing.T) {
	bars := &fakeBars{series: map[string][]models.Bar{
		"AAPL": dailyBars("AAPL", 20, func(i int) float64 { return 100 + float64(i) }),
	}}
	a := NewAnalyser(bars, "SPY", 252, nil)

	p := &models.Portfolio{Positions: []models.Position{
		{Ticker: "AAPL", Quantity: 10, AvgPrice: 150},
	}}
	got := a.Analyse(context.Background(), p)
	assert.Equal(t, "not enough price history", got.Note)
}

func TestAnalyseBetaOneAgainstSelfLikeBenchmark(t *testing.T) {
	// portfolio and benchmark share the identical return series, so beta
	// must come out at 1 and volatility must be positive
	gen := func(i int) float64 { return 100 * math.Pow(1.001, float64(i)) * (1 + 0.01*math.Sin(float64(i))) }
	bars := &fakeBars{series: map[string][]models.Bar{
		"AAPL": dailyBars("AAPL", 252, gen),
		"SPY":  dailyBars("SPY", 252, gen),
	}}
	a := NewAnalyser(bars, "SPY", 252, nil)

	p := &models.Portfolio{Positions: []models.Position{
		{Ticker: "AAPL", Quantity: 10, AvgPrice: 100},
	}}
	got := a.Analyse(context.Background(), p)

	require.NotNil(t, got.Beta)
	assert.InDelta(t, 1.0, *got.Beta, 1e-6)
	require.NotNil(t, got.Volatility)
	assert.Positive(t, *got.Volatility)
	require.NotNil(t, got.VaR95)
}

func TestAnalyseBetaOmittedWithoutBenchmark(t *testing.T) {
	gen := func(i int) float64 { return 100 + float64(i%7) }
	bars := &fakeBars{series: map[string][]models.Bar{
		"AAPL": dailyBars("AAPL", 252, gen),
	}}
	a := NewAnalyser(bars, "SPY", 252, nil)

	p := &models.Portfolio{Positions: []models.Position{
		{Ticker: "AAPL", Quantity: 5, AvgPrice: 200},
	}}
	got := a.Analyse(context.Background(), p)

	assert.Nil(t, got.Beta)
	assert.Equal(t, "beta unavailable", got.Note)
	require.NotNil(t, got.Volatility, "volatility still reported without a benchmark")
}

func TestAnalyseBetaOmittedForFlatBenchmark(t *testing.T) {
	bars := &fakeBars{series: map[string][]models.Bar{
		"AAPL": dailyBars("AAPL", 252, func(i int) float64 { return 100 + float64(i%5) }),
		"SPY":  dailyBars("SPY", 252, func(i int) float64 { return 400 }),
	}}
	a := NewAnalyser(bars, "SPY", 252, nil)

	p := &models.Portfolio{Positions: []models.Position{
		{Ticker: "AAPL", Quantity: 1, AvgPrice: 100},
	}}
	got := a.Analyse(context.Background(), p)

	assert.Nil(t, got.Beta, "near-zero benchmark variance cannot support beta")
}

func TestAnalyseRoundsToFourDecimals(t *testing.T) {
	gen := func(i int) float64 { return 100 * math.Pow(1.002, float64(i)) * (1 + 0.005*math.Cos(float64(i)*0.7)) }
	bars := &fakeBars{series: map[string][]models.Bar{
		"AAPL": dailyBars("AAPL", 252, gen),
		"SPY":  dailyBars("SPY", 252, gen),
	}}
	a := NewAnalyser(bars, "SPY", 252, nil)

	p := &models.Portfolio{Positions: []models.Position{
		{Ticker: "AAPL", Quantity: 2, AvgPrice: 150},
	}}
	got := a.Analyse(context.Background(), p)

	for _, v := range []*float64{got.Volatility, got.Beta, got.VaR95} {
		require.NotNil(t, v)
		scaled := *v * 10000
		assert.InDelta(t, math.Round(scaled), scaled, 1e-6)
	}
}

func TestAnalyseReportsWeightsAndSampleSize(t *testing.T) {
	gen := func(i int) float64 { return 100 * math.Pow(1.001, float64(i)) }
	bars := &fakeBars{series: map[string][]models.Bar{
		"AAPL": dailyBars("AAPL", 252, gen),
		"MSFT": dailyBars("MSFT", 252, gen),
		"SPY":  dailyBars("SPY", 252, gen),
	}}
	a := NewAnalyser(bars, "SPY", 252, nil)

	p := &models.Portfolio{Positions: []models.Position{
		{Ticker: "AAPL", Quantity: 3, AvgPrice: 100},
		{Ticker: "MSFT", Quantity: 1, AvgPrice: 100},
	}}
	got := a.Analyse(context.Background(), p)

	require.Len(t, got.Weights, 2)
	assert.InDelta(t, 0.75, got.Weights["AAPL"], 1e-9)
	assert.InDelta(t, 0.25, got.Weights["MSFT"], 1e-9)
	assert.Equal(t, 251, got.SampleSize, "one return per session pair")
}

func TestAnalyseShortHistoryStillReportsWeights(t *testing.T) {
	bars := &fakeBars{series: map[string][]models.Bar{
		"AAPL": dailyBars("AAPL", 20, func(i int) float64 { return 100 + float64(i) }),
	}}
	a := NewAnalyser(bars, "SPY", 252, nil)

	p := &models.Portfolio{Positions: []models.Position{
		{Ticker: "AAPL", Quantity: 10, AvgPrice: 150},
	}}
	got := a.Analyse(context.Background(), p)

	assert.Equal(t, "not enough price history", got.Note)
	assert.InDelta(t, 1.0, got.Weights["AAPL"], 1e-9)
	assert.Zero(t, got.SampleSize)
}

func TestPercentileInterpolation(t *testing.T) {
	xs := []float64{-0.05, -0.02, 0.0, 0.01, 0.03}
	// rank = 0.05 * 4 = 0.2 -> between -0.05 and -0.02
	got := percentile(xs, 5)
	assert.InDelta(t, -0.044, got, 1e-9)
}

func TestPositionWeightsAggregateDuplicates(t *testing.T) {
	p := &models.Portfolio{Positions: []models.Position{
		{Ticker: "AAPL", Quantity: 1, AvgPrice: 100},
		{Ticker: "AAPL", Quantity: 1, AvgPrice: 100},
		{Ticker: "MSFT", Quantity: 2, AvgPrice: 100},
	}}
	w := positionWeights(p)
	assert.InDelta(t, 0.5, w["AAPL"], 1e-9)
	assert.InDelta(t, 0.5, w["MSFT"], 1e-9)
}
