package synth

import (
	"context"
	"strings"
	"time"

	"wisetrade/internal/domain/models"
)

// RuleSynthesizer derives a recommendation from indicators, sentiment and
// the macro regime using a fixed rule table. It needs no model and is the
// default synthesizer.
type RuleSynthesizer struct{}

func NewRuleSynthesizer() *RuleSynthesizer { return &RuleSynthesizer{} }

func (s *RuleSynthesizer) Name() string { return "rules" }

// Synthesize applies the rule table:
//
//	close above SMA_50 above SMA_200  -> BUY 0.7 (golden cross regime)
//	close below SMA_50 below SMA_200  -> SELL 0.7 (death cross regime)
//	RSI_14 above 70                   -> SELL, confidence at least 0.6
//	RSI_14 below 35                   -> BUY, confidence at least 0.6
//	macro RISK_OFF demotes BUY        -> HOLD 0.4
func (s *RuleSynthesizer) Synthesize(_ context.Context, state *models.PipelineState) (*models.Advice, error) {
	action := models.ActionHold
	confidence := 0.5
	var reasons []string

	ind := state.Indicators
	var close float64
	if state.LastPrice != nil {
		close = state.LastPrice.Price
	} else if n := len(state.Bars); n > 0 {
		close = state.Bars[n-1].Close
	}

	sma50, ok50 := ind["SMA_50"]
	sma200, ok200 := ind["SMA_200"]
	if close > 0 && ok50 && ok200 {
		switch {
		case close > sma50 && sma50 > sma200:
			action = models.ActionBuy
			confidence = 0.7
			reasons = append(reasons, "bullish golden-cross regime")
		case close < sma50 && sma50 < sma200:
			action = models.ActionSell
			confidence = 0.7
			reasons = append(reasons, "bearish death-cross regime")
		}
	}

	if rsi, ok := ind["RSI_14"]; ok {
		switch {
		case rsi > 70:
			action = models.ActionSell
			if confidence < 0.6 {
				confidence = 0.6
			}
			reasons = append(reasons, "RSI overbought")
		case rsi < 35:
			action = models.ActionBuy
			if confidence < 0.6 {
				confidence = 0.6
			}
			reasons = append(reasons, "RSI oversold")
		}
	}

	if state.Macro != nil && state.Macro.Regime == models.RegimeRiskOff && action == models.ActionBuy {
		action = models.ActionHold
		confidence = 0.4
		reasons = append(reasons, "macro risk-off override")
	}

	rationale := "No strong signal."
	if len(reasons) > 0 {
		rationale = strings.Join(reasons, "; ")
	}

	return &models.Advice{
		Ticker:      state.Ticker,
		Action:      action,
		Confidence:  confidence,
		Rationale:   rationale,
		Synthesizer: s.Name(),
		CreatedAt:   time.Now().UTC(),
	}, nil
}
