package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	providerFetches *prometheus.CounterVec
	llmCalls        *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	adviceIssued    *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	lastPrice       *prometheus.GaugeVec
	stageDuration   *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		providerFetches: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wisetrade_provider_fetches_total",
				Help: "Data provider fetch attempts by outcome",
			},
			[]string{"provider", "kind", "result"},
		),
		llmCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wisetrade_llm_calls_total",
				Help: "LLM invocations by purpose and outcome",
			},
			[]string{"purpose", "result"},
		),
		cacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wisetrade_cache_requests_total",
				Help: "Cache lookups by outcome",
			},
			[]string{"kind", "result"},
		),
		adviceIssued: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wisetrade_advice_issued_total",
				Help: "Advice produced per recommended action",
			},
			[]string{"action"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wisetrade_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "wisetrade_last_price",
				Help: "Last observed close price for a ticker",
			},
			[]string{"ticker"},
		),
		stageDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wisetrade_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
	}
}

// RecordProviderFetch records one provider call outcome.
func (r *Recorder) RecordProviderFetch(provider, kind, result string) {
	r.providerFetches.WithLabelValues(provider, kind, result).Inc()
}

// RecordLLMCall records one model invocation.
func (r *Recorder) RecordLLMCall(purpose, result string) {
	r.llmCalls.WithLabelValues(purpose, result).Inc()
}

// RecordCacheLookup records a cache hit or miss.
func (r *Recorder) RecordCacheLookup(kind, result string) {
	r.cacheHits.WithLabelValues(kind, result).Inc()
}

// RecordAdvice records an issued recommendation.
func (r *Recorder) RecordAdvice(action string) {
	r.adviceIssued.WithLabelValues(action).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last close price for a ticker.
func (r *Recorder) RecordLastPrice(ticker string, price float64) {
	r.lastPrice.WithLabelValues(ticker).Set(price)
}

// RecordStageDuration records pipeline stage latency in seconds.
func (r *Recorder) RecordStageDuration(stage string, seconds float64) {
	r.stageDuration.WithLabelValues(stage).Observe(seconds)
}
