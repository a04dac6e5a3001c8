package models

import "time"

// Action is the recommended trade direction.
type Action string

const (
	ActionBuy   Action = "BUY"
	ActionSell  Action = "SELL"
	ActionHold  Action = "HOLD"
	ActionRebal Action = "REBAL"
)

// Advice is the synthesized recommendation for one ticker. PortfolioID is
// zero for ad-hoc runs; portfolio runs carry the portfolio so the store can
// upsert on (portfolio, ticker).
type Advice struct {
	Ticker      string    `json:"ticker"`
	PortfolioID uint      `json:"portfolio_id,omitempty"`
	Action      Action    `json:"action"`
	Confidence  float64   `json:"confidence"` // 0..1
	Rationale   string    `json:"rationale"`
	Synthesizer string    `json:"synthesizer"` // rules or llm
	CreatedAt   time.Time `json:"created_at"`
}

// IndicatorSet is a flat map of indicator values for one ticker, keyed as
// FAMILY_COLUMN (SMA_50, MACD_hist, BBANDS_upper, ...). Families that failed
// to compute are simply absent.
type IndicatorSet map[string]float64

// IndicatorPoint is one dated value of a named indicator series, keyed by
// (ticker, name, session date).
type IndicatorPoint struct {
	Ticker    string    `json:"ticker"`
	Name      string    `json:"name"`
	SessionAt time.Time `json:"session_at"`
	Value     float64   `json:"value"`
}

// LatestIndicators collapses a point series to the newest value per name.
func LatestIndicators(points []IndicatorPoint) IndicatorSet {
	set := make(IndicatorSet)
	newest := make(map[string]time.Time)
	for _, p := range points {
		if t, ok := newest[p.Name]; !ok || p.SessionAt.After(t) {
			newest[p.Name] = p.SessionAt
			set[p.Name] = p.Value
		}
	}
	return set
}

// StageStatus tracks one pipeline node's outcome.
type StageStatus string

const (
	StagePending  StageStatus = "PENDING"
	StageOK       StageStatus = "OK"
	StageDegraded StageStatus = "DEGRADED"
	StageFailed   StageStatus = "FAILED"
	StageSkipped  StageStatus = "SKIPPED"
)

// PipelineState carries everything collected for a ticker as the advice
// pipeline progresses. Degraded inputs stay nil and are reported in Notes.
type PipelineState struct {
	Ticker string
	AsOf   time.Time

	Bars       []Bar
	LastPrice  *Quote
	Indicators IndicatorSet
	Risk       *RiskMetrics
	Articles   []Article
	Sentiment  *SentimentResult
	Macro      *MacroSnapshot
	Basket     *Basket

	Stages map[string]StageStatus
	Notes  []string
}

// NewPipelineState seeds an empty state for a run.
func NewPipelineState(ticker string, asOf time.Time) *PipelineState {
	return &PipelineState{
		Ticker: ticker,
		AsOf:   asOf,
		Stages: make(map[string]StageStatus),
	}
}

// Note records a degradation message for the final rationale trail.
func (s *PipelineState) Note(msg string) {
	s.Notes = append(s.Notes, msg)
}
