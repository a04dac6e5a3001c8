package indicators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wisetrade/internal/domain/models"
)

// syntheticBars builds n sessions with close = start + i*step and a fixed
// high/low band around the close.
func syntheticBars(n int, start, step float64) []models.Bar {
	bars := make([]models.Bar, n)
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		c := start + float64(i)*step
		bars[i] = models.Bar{
			Ticker:    "TEST",
			SessionAt: day.AddDate(0, 0, i),
			Open:      c - step/2,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1000,
		}
	}
	return bars
}

func TestComputeFullHistory(t *testing.T) {
	engine := NewEngine(nil)
	bars := syntheticBars(260, 100, 0.5)

	set := engine.Compute(bars)

	for _, key := range []string{
		"SMA_50", "SMA_200", "EMA_12", "EMA_26", "RSI_14", "MOM_10",
		"STOCH_K", "STOCH_D", "MACD_line", "MACD_signal", "MACD_hist",
		"BBANDS_lower", "BBANDS_mid", "BBANDS_upper", "ATR_14", "OBV", "CMF_20",
	} {
		assert.Contains(t, set, key)
	}
}

func TestSMAValues(t *testing.T) {
	engine := NewEngine(nil)
	bars := syntheticBars(200, 1, 1) // closes 1..200

	set := engine.Compute(bars)

	// mean of last 50 closes (151..200) and all 200 closes (1..200)
	assert.InDelta(t, 175.5, set["SMA_50"], 1e-9)
	assert.InDelta(t, 100.5, set["SMA_200"], 1e-9)
}

func TestRSIMonotonicSeries(t *testing.T) {
	engine := NewEngine(nil)

	up := engine.Compute(syntheticBars(60, 100, 1))
	require.Contains(t, up, "RSI_14")
	assert.InDelta(t, 100, up["RSI_14"], 1e-9, "strictly rising series has RSI 100")

	down := engine.Compute(syntheticBars(60, 200, -1))
	require.Contains(t, down, "RSI_14")
	assert.InDelta(t, 0, down["RSI_14"], 1e-9, "strictly falling series has RSI 0")
}

func TestMomentum(t *testing.T) {
	engine := NewEngine(nil)
	set := engine.Compute(syntheticBars(60, 100, 2))
	assert.InDelta(t, 20, set["MOM_10"], 1e-9, "close minus close ten sessions back")
}

func TestBollingerFlatSeries(t *testing.T) {
	engine := NewEngine(nil)
	set := engine.Compute(syntheticBars(60, 50, 0))

	assert.InDelta(t, 50, set["BBANDS_mid"], 1e-9)
	assert.InDelta(t, 50, set["BBANDS_lower"], 1e-9, "flat series has zero width bands")
	assert.InDelta(t, 50, set["BBANDS_upper"], 1e-9)
}

func TestOBVDirection(t *testing.T) {
	engine := NewEngine(nil)

	up := engine.Compute(syntheticBars(30, 100, 1))
	assert.InDelta(t, 29000, up["OBV"], 1e-9, "every session adds its volume")

	down := engine.Compute(syntheticBars(30, 200, -1))
	assert.InDelta(t, -29000, down["OBV"], 1e-9)
}

func TestATRFixedRange(t *testing.T) {
	engine := NewEngine(nil)
	// flat closes, constant 2-point high/low band: TR is constant 2
	set := engine.Compute(syntheticBars(60, 100, 0))
	assert.InDelta(t, 2, set["ATR_14"], 1e-9)
}

func TestShortHistorySkipsFamiliesIndependently(t *testing.T) {
	engine := NewEngine(nil)
	set := engine.Compute(syntheticBars(30, 100, 1))

	// 30 sessions: long averages impossible, short families still compute
	assert.NotContains(t, set, "SMA_200")
	assert.NotContains(t, set, "SMA_50")
	assert.Contains(t, set, "RSI_14")
	assert.Contains(t, set, "MOM_10")
	assert.Contains(t, set, "BBANDS_mid")
	assert.Contains(t, set, "OBV")
}

func TestEmptyHistory(t *testing.T) {
	engine := NewEngine(nil)
	set := engine.Compute(nil)
	assert.Empty(t, set)
}

func TestComputeSeriesDatesFollowSessions(t *testing.T) {
	engine := NewEngine(nil)
	bars := syntheticBars(60, 100, 2)

	points := engine.ComputeSeries(bars)
	require.NotEmpty(t, points)

	mom := make([]models.IndicatorPoint, 0, 50)
	for _, p := range points {
		assert.Equal(t, "TEST", p.Ticker)
		if p.Name == "MOM_10" {
			mom = append(mom, p)
		}
	}

	// one point per session once the 10-bar window is satisfied
	require.Len(t, mom, 50)
	assert.Equal(t, bars[10].SessionAt, mom[0].SessionAt)
	assert.Equal(t, bars[59].SessionAt, mom[49].SessionAt)
	for _, p := range mom {
		assert.InDelta(t, 20, p.Value, 1e-9)
	}
}

func TestComputeSeriesLatestMatchesSnapshot(t *testing.T) {
	engine := NewEngine(nil)
	bars := syntheticBars(260, 100, 0.5)

	set := engine.Compute(bars)
	latest := models.LatestIndicators(engine.ComputeSeries(bars))

	require.Equal(t, len(set), len(latest))
	for name, v := range set {
		assert.InDelta(t, v, latest[name], 1e-9, name)
	}
}

func TestComputeSeriesRecomputeKeysStable(t *testing.T) {
	engine := NewEngine(nil)
	bars := syntheticBars(120, 100, 1)

	first := engine.ComputeSeries(bars)
	second := engine.ComputeSeries(bars)

	// identical keys and values, so a store upsert supersedes in place
	require.Equal(t, len(first), len(second))
	type key struct {
		name string
		at   time.Time
	}
	seen := make(map[key]float64, len(first))
	for _, p := range first {
		seen[key{p.Name, p.SessionAt}] = p.Value
	}
	for _, p := range second {
		v, ok := seen[key{p.Name, p.SessionAt}]
		require.True(t, ok)
		assert.InDelta(t, v, p.Value, 1e-12)
	}
}

func TestComputeSeriesEmptyHistory(t *testing.T) {
	engine := NewEngine(nil)
	assert.Empty(t, engine.ComputeSeries(nil))
}

func TestMACDSignRespondsToTrend(t *testing.T) {
	engine := NewEngine(nil)

	up := engine.Compute(syntheticBars(120, 100, 1))
	require.Contains(t, up, "MACD_line")
	assert.Positive(t, up["MACD_line"], "rising trend keeps fast EMA above slow")

	down := engine.Compute(syntheticBars(120, 300, -1))
	require.Contains(t, down, "MACD_line")
	assert.Negative(t, down["MACD_line"])
}
