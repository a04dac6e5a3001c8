package indicators

import (
	"fmt"
	"math"

	"wisetrade/internal/domain/models"
	"wisetrade/pkg/logger"
)

// Engine computes the standard indicator families over daily bars. Each
// family is computed independently; a family without enough history is
// skipped, never failing the whole set.
type Engine struct {
	log *logger.Logger
}

func NewEngine(log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{log: log}
}

// Every family emits tail-aligned series per output column: series[k]
// belongs to bars[len(bars)-len(series)+k].
type family struct {
	name    string
	compute func(bars []models.Bar) (map[string][]float64, error)
}

var families = []family{
	{"SMA", smaFamily},
	{"EMA", emaFamily},
	{"RSI", rsiFamily},
	{"MOM", momFamily},
	{"STOCH", stochFamily},
	{"MACD", macdFamily},
	{"BBANDS", bbandsFamily},
	{"ATR", atrFamily},
	{"OBV", obvFamily},
	{"CMF", cmfFamily},
}

// ComputeSeries returns one dated point per series value, for every session
// whose trailing window is satisfied. Recomputing over the same bars yields
// the same (ticker, name, date) keys, so stores can upsert in place.
func (e *Engine) ComputeSeries(bars []models.Bar) []models.IndicatorPoint {
	if len(bars) == 0 {
		return nil
	}

	points := make([]models.IndicatorPoint, 0, 8*len(bars))
	for _, f := range families {
		values, err := f.compute(bars)
		if err != nil {
			e.log.Debug("indicator family skipped",
				logger.String("family", f.name),
				logger.Error(err),
			)
			continue
		}
		for name, series := range values {
			offset := len(bars) - len(series)
			for k, v := range series {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					continue
				}
				b := bars[offset+k]
				points = append(points, models.IndicatorPoint{
					Ticker:    b.Ticker,
					Name:      name,
					SessionAt: b.SessionAt,
					Value:     v,
				})
			}
		}
	}
	return points
}

// Compute returns the latest value of every family that has enough history,
// keyed FAMILY_column.
func (e *Engine) Compute(bars []models.Bar) models.IndicatorSet {
	set := make(models.IndicatorSet)

	for _, f := range families {
		values, err := f.compute(bars)
		if err != nil {
			e.log.Debug("indicator family skipped",
				logger.String("family", f.name),
				logger.Error(err),
			)
			continue
		}
		for name, series := range values {
			if len(series) == 0 {
				continue
			}
			v := series[len(series)-1]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			set[name] = v
		}
	}

	return set
}

func closes(bars []models.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

var errInsufficient = fmt.Errorf("not enough history")

func need(bars []models.Bar, n int) error {
	if len(bars) < n {
		return fmt.Errorf("%w: have %d sessions, need %d", errInsufficient, len(bars), n)
	}
	return nil
}

// smaSeries returns the rolling n-mean, one value per complete window.
func smaSeries(values []float64, n int) []float64 {
	if len(values) < n {
		return nil
	}
	out := make([]float64, 0, len(values)-n+1)
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= n {
			sum -= values[i-n]
		}
		if i >= n-1 {
			out = append(out, sum/float64(n))
		}
	}
	return out
}

// emaSeries returns the full exponential moving average series, seeded with
// the SMA of the first n values.
func emaSeries(values []float64, n int) []float64 {
	if len(values) < n {
		return nil
	}
	k := 2.0 / (float64(n) + 1.0)
	out := make([]float64, 0, len(values)-n+1)

	seed := 0.0
	for _, v := range values[:n] {
		seed += v
	}
	seed /= float64(n)
	out = append(out, seed)

	prev := seed
	for _, v := range values[n:] {
		prev = v*k + prev*(1-k)
		out = append(out, prev)
	}
	return out
}

func smaFamily(bars []models.Bar) (map[string][]float64, error) {
	if err := need(bars, 200); err != nil {
		return nil, err
	}
	c := closes(bars)
	return map[string][]float64{
		"SMA_50":  smaSeries(c, 50),
		"SMA_200": smaSeries(c, 200),
	}, nil
}

func emaFamily(bars []models.Bar) (map[string][]float64, error) {
	if err := need(bars, 26); err != nil {
		return nil, err
	}
	c := closes(bars)
	return map[string][]float64{
		"EMA_12": emaSeries(c, 12),
		"EMA_26": emaSeries(c, 26),
	}, nil
}

// rsiFamily computes the 14-session RSI with Wilder smoothing, one value per
// session past the seed window.
func rsiFamily(bars []models.Bar) (map[string][]float64, error) {
	const n = 14
	if err := need(bars, n+1); err != nil {
		return nil, err
	}
	c := closes(bars)

	var gain, loss float64
	for i := 1; i <= n; i++ {
		d := c[i] - c[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	avgGain := gain / n
	avgLoss := loss / n

	out := make([]float64, 0, len(c)-n)
	out = append(out, rsiValue(avgGain, avgLoss))

	for i := n + 1; i < len(c); i++ {
		d := c[i] - c[i-1]
		g, l := 0.0, 0.0
		if d > 0 {
			g = d
		} else {
			l = -d
		}
		avgGain = (avgGain*(n-1) + g) / n
		avgLoss = (avgLoss*(n-1) + l) / n
		out = append(out, rsiValue(avgGain, avgLoss))
	}

	return map[string][]float64{"RSI_14": out}, nil
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

func momFamily(bars []models.Bar) (map[string][]float64, error) {
	const n = 10
	if err := need(bars, n+1); err != nil {
		return nil, err
	}
	c := closes(bars)

	out := make([]float64, 0, len(c)-n)
	for i := n; i < len(c); i++ {
		out = append(out, c[i]-c[i-n])
	}
	return map[string][]float64{"MOM_10": out}, nil
}

// stochFamily computes the 14/3 stochastic oscillator (%K smoothed over 3,
// %D as the 3-session SMA of %K).
func stochFamily(bars []models.Bar) (map[string][]float64, error) {
	const n, smooth = 14, 3
	if err := need(bars, n+smooth+smooth-2); err != nil {
		return nil, err
	}

	rawK := make([]float64, 0, len(bars)-n+1)
	for i := n - 1; i < len(bars); i++ {
		hi, lo := bars[i].High, bars[i].Low
		for j := i - n + 1; j <= i; j++ {
			hi = math.Max(hi, bars[j].High)
			lo = math.Min(lo, bars[j].Low)
		}
		if hi == lo {
			rawK = append(rawK, 50)
			continue
		}
		rawK = append(rawK, (bars[i].Close-lo)/(hi-lo)*100)
	}

	k := smaSeries(rawK, smooth)
	d := smaSeries(k, smooth)
	if len(d) == 0 {
		return nil, errInsufficient
	}

	return map[string][]float64{
		"STOCH_K": k,
		"STOCH_D": d,
	}, nil
}

// macdFamily computes MACD(12,26) with a 9-session signal line.
func macdFamily(bars []models.Bar) (map[string][]float64, error) {
	const fast, slow, signal = 12, 26, 9
	if err := need(bars, slow+signal); err != nil {
		return nil, err
	}
	c := closes(bars)

	emaFast := emaSeries(c, fast)
	emaSlow := emaSeries(c, slow)

	// Align the fast series to the slow one
	offset := len(emaFast) - len(emaSlow)
	line := make([]float64, len(emaSlow))
	for i := range emaSlow {
		line[i] = emaFast[i+offset] - emaSlow[i]
	}

	signalSeries := emaSeries(line, signal)
	if len(signalSeries) == 0 {
		return nil, errInsufficient
	}

	histOffset := len(line) - len(signalSeries)
	hist := make([]float64, len(signalSeries))
	for i := range signalSeries {
		hist[i] = line[histOffset+i] - signalSeries[i]
	}

	return map[string][]float64{
		"MACD_line":   line,
		"MACD_signal": signalSeries,
		"MACD_hist":   hist,
	}, nil
}

// bbandsFamily computes 20-session Bollinger Bands at two standard
// deviations.
func bbandsFamily(bars []models.Bar) (map[string][]float64, error) {
	const n = 20
	if err := need(bars, n); err != nil {
		return nil, err
	}
	c := closes(bars)

	count := len(c) - n + 1
	lower := make([]float64, 0, count)
	mid := make([]float64, 0, count)
	upper := make([]float64, 0, count)

	for end := n; end <= len(c); end++ {
		window := c[end-n : end]
		m := 0.0
		for _, v := range window {
			m += v
		}
		m /= n

		variance := 0.0
		for _, v := range window {
			variance += (v - m) * (v - m)
		}
		sd := math.Sqrt(variance / n)

		lower = append(lower, m-2*sd)
		mid = append(mid, m)
		upper = append(upper, m+2*sd)
	}

	return map[string][]float64{
		"BBANDS_lower": lower,
		"BBANDS_mid":   mid,
		"BBANDS_upper": upper,
	}, nil
}

// atrFamily computes the 14-session average true range with Wilder
// smoothing.
func atrFamily(bars []models.Bar) (map[string][]float64, error) {
	const n = 14
	if err := need(bars, n+1); err != nil {
		return nil, err
	}

	tr := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		hl := bars[i].High - bars[i].Low
		hc := math.Abs(bars[i].High - bars[i-1].Close)
		lc := math.Abs(bars[i].Low - bars[i-1].Close)
		tr = append(tr, math.Max(hl, math.Max(hc, lc)))
	}

	atr := 0.0
	for _, v := range tr[:n] {
		atr += v
	}
	atr /= n

	out := make([]float64, 0, len(tr)-n+1)
	out = append(out, atr)
	for _, v := range tr[n:] {
		atr = (atr*(n-1) + v) / n
		out = append(out, atr)
	}

	return map[string][]float64{"ATR_14": out}, nil
}

func obvFamily(bars []models.Bar) (map[string][]float64, error) {
	if err := need(bars, 2); err != nil {
		return nil, err
	}

	obv := 0.0
	out := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		switch {
		case bars[i].Close > bars[i-1].Close:
			obv += bars[i].Volume
		case bars[i].Close < bars[i-1].Close:
			obv -= bars[i].Volume
		}
		out = append(out, obv)
	}
	return map[string][]float64{"OBV": out}, nil
}

// cmfFamily computes the 20-session Chaikin money flow. Windows without any
// volume yield NaN and are dropped from the point set.
func cmfFamily(bars []models.Bar) (map[string][]float64, error) {
	const n = 20
	if err := need(bars, n); err != nil {
		return nil, err
	}

	out := make([]float64, 0, len(bars)-n+1)
	for end := n; end <= len(bars); end++ {
		var mfv, vol float64
		for _, b := range bars[end-n : end] {
			if b.High == b.Low || b.Volume == 0 {
				continue
			}
			multiplier := ((b.Close - b.Low) - (b.High - b.Close)) / (b.High - b.Low)
			mfv += multiplier * b.Volume
			vol += b.Volume
		}
		if vol == 0 {
			out = append(out, math.NaN())
			continue
		}
		out = append(out, mfv/vol)
	}
	return map[string][]float64{"CMF_20": out}, nil
}
