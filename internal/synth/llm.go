package synth

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"wisetrade/internal/domain/models"
	"wisetrade/internal/domain/repository"
	"wisetrade/internal/domain/service"
	"wisetrade/pkg/logger"
)

const synthesisPromptTemplate = `You are a cautious trading advisor. Based on
the analysis below for %s, respond with ONLY a JSON object, no markdown:
{"action": "BUY"|"SELL"|"HOLD"|"REBAL", "confidence": <number 0..1>, "rationale": "<one or two sentences>"}

%s`

var jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

// LLMSynthesizer asks a model to weigh the collected evidence. Anything it
// cannot parse degrades to a conservative HOLD.
type LLMSynthesizer struct {
	llm     service.LLM
	metrics repository.Metrics
	log     *logger.Logger
}

func NewLLMSynthesizer(llm service.LLM, metrics repository.Metrics, log *logger.Logger) *LLMSynthesizer {
	if log == nil {
		log = logger.Nop()
	}
	return &LLMSynthesizer{llm: llm, metrics: metrics, log: log}
}

func (s *LLMSynthesizer) Name() string { return "llm" }

func (s *LLMSynthesizer) Synthesize(ctx context.Context, state *models.PipelineState) (*models.Advice, error) {
	if s.llm == nil {
		return nil, fmt.Errorf("synth: no model configured")
	}

	raw, err := s.llm.Invoke(ctx, fmt.Sprintf(synthesisPromptTemplate, state.Ticker, renderContext(state)))
	if err != nil {
		s.record("error")
		return nil, fmt.Errorf("synth: %w", err)
	}

	advice, ok := parseAdvice(raw)
	if !ok {
		s.record("parse_error")
		s.log.Warn("synthesis response unparseable", logger.String("ticker", state.Ticker))
		return &models.Advice{
			Ticker:      state.Ticker,
			Action:      models.ActionHold,
			Confidence:  0.3,
			Rationale:   "Could not parse LLM response, default to HOLD.",
			Synthesizer: s.Name(),
			CreatedAt:   time.Now().UTC(),
		}, nil
	}
	s.record("ok")

	advice.Ticker = state.Ticker
	advice.Synthesizer = s.Name()
	advice.CreatedAt = time.Now().UTC()
	return advice, nil
}

// renderContext flattens the pipeline state into a prompt section.
func renderContext(state *models.PipelineState) string {
	var b strings.Builder

	if state.LastPrice != nil {
		fmt.Fprintf(&b, "Last price: %.4f\n", state.LastPrice.Price)
	}

	if len(state.Indicators) > 0 {
		keys := make([]string, 0, len(state.Indicators))
		for k := range state.Indicators {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("Technical indicators:\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "  %s = %.4f\n", k, state.Indicators[k])
		}
	}

	if state.Sentiment != nil {
		fmt.Fprintf(&b, "News sentiment (%.2f): %s\n", state.Sentiment.Score, state.Sentiment.Summary)
	}

	if state.Macro != nil {
		fmt.Fprintf(&b, "Macro regime: %s", state.Macro.Regime)
		if state.Macro.VIX > 0 {
			fmt.Fprintf(&b, " (VIX %.2f)", state.Macro.VIX)
		}
		b.WriteString("\n")
	}

	if state.Risk != nil {
		if state.Risk.Volatility != nil {
			fmt.Fprintf(&b, "Portfolio volatility: %.4f\n", *state.Risk.Volatility)
		}
		if state.Risk.Beta != nil {
			fmt.Fprintf(&b, "Portfolio beta: %.4f\n", *state.Risk.Beta)
		}
		if state.Risk.VaR95 != nil {
			fmt.Fprintf(&b, "Portfolio one-day VaR95: %.4f\n", *state.Risk.VaR95)
		}
		if state.Risk.Note != "" {
			fmt.Fprintf(&b, "Risk note: %s\n", state.Risk.Note)
		}
	}

	for _, note := range state.Notes {
		fmt.Fprintf(&b, "Data note: %s\n", note)
	}

	if b.Len() == 0 {
		b.WriteString("No analysis data is available.\n")
	}
	return b.String()
}

func parseAdvice(raw string) (*models.Advice, bool) {
	var payload struct {
		Action     string  `json:"action"`
		Confidence float64 `json:"confidence"`
		Rationale  string  `json:"rationale"`
	}

	trimmed := strings.TrimSpace(raw)
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		m := jsonObjectRe.FindString(trimmed)
		if m == "" {
			return nil, false
		}
		if err := json.Unmarshal([]byte(m), &payload); err != nil {
			return nil, false
		}
	}

	action := models.Action(strings.ToUpper(strings.TrimSpace(payload.Action)))
	switch action {
	case models.ActionBuy, models.ActionSell, models.ActionHold, models.ActionRebal:
	default:
		return nil, false
	}

	conf := payload.Confidence
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}

	return &models.Advice{
		Action:     action,
		Confidence: conf,
		Rationale:  payload.Rationale,
	}, true
}

func (s *LLMSynthesizer) record(result string) {
	if s.metrics != nil {
		s.metrics.RecordLLMCall("synthesis", result)
	}
}
