package risk

import (
	"context"
	"math"
	"sort"
	"time"

	"wisetrade/internal/domain/models"
	"wisetrade/pkg/logger"
)

const (
	minSessions    = 60 // rows required to report anything
	minBetaOverlap = 30 // paired returns required for beta
	sessionsPerYr  = 252
)

// BarSource supplies close history per ticker, typically the market data
// acquisition service.
type BarSource interface {
	History(ctx context.Context, ticker string, lookbackDays int) ([]models.Bar, error)
}

// Analyser computes trailing portfolio risk metrics against a benchmark.
type Analyser struct {
	bars      BarSource
	benchmark string
	window    int
	log       *logger.Logger
}

func NewAnalyser(bars BarSource, benchmark string, window int, log *logger.Logger) *Analyser {
	if benchmark == "" {
		benchmark = "SPY"
	}
	if window <= 0 {
		window = sessionsPerYr
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Analyser{bars: bars, benchmark: benchmark, window: window, log: log}
}

// Analyse computes annualized volatility, beta and one-day 95% VaR for the
// portfolio. Metrics that cannot be computed are omitted with a note; the
// method itself never fails on data quality.
func (a *Analyser) Analyse(ctx context.Context, p *models.Portfolio) *models.RiskMetrics {
	weights := positionWeights(p)
	if len(weights) == 0 {
		return &models.RiskMetrics{Note: "portfolio has no market value"}
	}

	closeSeries, days := a.collectCloses(ctx, weights)
	if len(days) < minSessions {
		return &models.RiskMetrics{Weights: roundWeights(weights), Note: "not enough price history"}
	}

	portReturns := weightedReturns(closeSeries, weights, days)
	if len(portReturns) < minSessions-1 {
		return &models.RiskMetrics{Weights: roundWeights(weights), Note: "not enough price history"}
	}

	out := &models.RiskMetrics{
		Weights:    roundWeights(weights),
		SampleSize: len(portReturns),
	}

	vol := round4(stddev(portReturns) * math.Sqrt(sessionsPerYr))
	out.Volatility = &vol

	v := round4(percentile(portReturns, 5))
	out.VaR95 = &v

	if beta, ok := a.beta(ctx, portReturns, days); ok {
		b := round4(beta)
		out.Beta = &b
	} else {
		out.Note = "beta unavailable"
	}

	return out
}

// positionWeights converts positions to cost-basis weights summing to one.
func positionWeights(p *models.Portfolio) map[string]float64 {
	if p == nil {
		return nil
	}
	total := 0.0
	for _, pos := range p.Positions {
		total += pos.Quantity * pos.AvgPrice
	}
	if total <= 0 {
		return nil
	}
	weights := make(map[string]float64, len(p.Positions))
	for _, pos := range p.Positions {
		weights[pos.Ticker] += pos.Quantity * pos.AvgPrice / total
	}
	return weights
}

// collectCloses builds a forward-filled close matrix over the union of
// session days across all held tickers.
func (a *Analyser) collectCloses(ctx context.Context, weights map[string]float64) (map[string]map[time.Time]float64, []time.Time) {
	lookbackDays := a.window * 3 / 2 // calendar days to cover the session window

	closeSeries := make(map[string]map[time.Time]float64, len(weights))
	daySet := make(map[time.Time]struct{})

	for ticker := range weights {
		bars, err := a.bars.History(ctx, ticker, lookbackDays)
		if err != nil {
			a.log.Warn("risk: history unavailable",
				logger.String("ticker", ticker),
				logger.Error(err),
			)
			continue
		}
		series := make(map[time.Time]float64, len(bars))
		for _, b := range bars {
			series[b.SessionAt] = b.Close
			daySet[b.SessionAt] = struct{}{}
		}
		closeSeries[ticker] = series
	}

	days := make([]time.Time, 0, len(daySet))
	for d := range daySet {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	if len(days) > a.window {
		days = days[len(days)-a.window:]
	}
	return closeSeries, days
}

// weightedReturns forward-fills each ticker's closes over days, computes
// simple returns and combines them with the portfolio weights. Tickers with
// no data at all are excluded and their weight redistributed implicitly.
func weightedReturns(closeSeries map[string]map[time.Time]float64, weights map[string]float64, days []time.Time) []float64 {
	filled := make(map[string][]float64, len(closeSeries))
	for ticker, series := range closeSeries {
		row := make([]float64, len(days))
		last := math.NaN()
		for i, d := range days {
			if v, ok := series[d]; ok {
				last = v
			}
			row[i] = last
		}
		filled[ticker] = row
	}

	returns := make([]float64, 0, len(days)-1)
	for i := 1; i < len(days); i++ {
		total := 0.0
		used := 0.0
		for ticker, row := range filled {
			prev, cur := row[i-1], row[i]
			if math.IsNaN(prev) || math.IsNaN(cur) || prev == 0 {
				continue
			}
			w := weights[ticker]
			total += w * (cur/prev - 1)
			used += w
		}
		if used == 0 {
			continue
		}
		returns = append(returns, total/used)
	}
	return returns
}

// beta regresses portfolio returns against the benchmark over the same
// trailing days.
func (a *Analyser) beta(ctx context.Context, portReturns []float64, days []time.Time) (float64, bool) {
	bars, err := a.bars.History(ctx, a.benchmark, a.window*3/2)
	if err != nil || len(bars) == 0 {
		return 0, false
	}

	series := make(map[time.Time]float64, len(bars))
	for _, b := range bars {
		series[b.SessionAt] = b.Close
	}

	benchReturns := make([]float64, 0, len(days)-1)
	pairedPort := make([]float64, 0, len(days)-1)
	last := math.NaN()
	prevFilled := math.NaN()
	for i, d := range days {
		if v, ok := series[d]; ok {
			last = v
		}
		if i == 0 {
			prevFilled = last
			continue
		}
		if !math.IsNaN(prevFilled) && !math.IsNaN(last) && prevFilled != 0 && i-1 < len(portReturns) {
			benchReturns = append(benchReturns, last/prevFilled-1)
			pairedPort = append(pairedPort, portReturns[i-1])
		}
		prevFilled = last
	}

	if len(benchReturns) < minBetaOverlap {
		return 0, false
	}

	benchVar := variance(benchReturns)
	if benchVar < 1e-12 {
		return 0, false
	}
	return covariance(pairedPort, benchReturns) / benchVar, true
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func variance(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	sum := 0.0
	for _, x := range xs {
		sum += (x - m) * (x - m)
	}
	return sum / float64(len(xs)-1)
}

func stddev(xs []float64) float64 {
	return math.Sqrt(variance(xs))
}

func covariance(xs, ys []float64) float64 {
	n := len(xs)
	if n < 2 || n != len(ys) {
		return 0
	}
	mx, my := mean(xs), mean(ys)
	sum := 0.0
	for i := range xs {
		sum += (xs[i] - mx) * (ys[i] - my)
	}
	return sum / float64(n-1)
}

// percentile returns the p-th percentile using linear interpolation between
// the nearest ranks.
func percentile(xs []float64, p float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func roundWeights(weights map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(weights))
	for ticker, w := range weights {
		out[ticker] = round4(w)
	}
	return out
}
