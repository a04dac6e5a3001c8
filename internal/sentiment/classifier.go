package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"wisetrade/internal/domain/models"
	"wisetrade/internal/domain/repository"
	"wisetrade/internal/domain/service"
	"wisetrade/pkg/logger"
	"wisetrade/pkg/util"
)

const promptTemplate = `You are a financial news sentiment classifier.
Given the headlines below about %s, respond with ONLY a JSON object, no
markdown and no extra text, in this exact shape:
{"summary": "<one sentence digest>", "score": <number between -1 and 1>}
A score of -1 is strongly bearish, 0 is neutral, 1 is strongly bullish.

Headlines:
%s`

// jsonObjectRe grabs the first {...} block out of a chatty completion.
var jsonObjectRe = regexp.MustCompile(`(?s)\{.*?\}`)

// Classifier turns headlines into a scored sentiment digest, memoized per
// (ticker, UTC day) so each ticker costs at most one model call a day.
type Classifier struct {
	llm     service.LLM
	store   repository.SentimentStore
	metrics repository.Metrics
	log     *logger.Logger
}

func NewClassifier(llm service.LLM, store repository.SentimentStore, metrics repository.Metrics, log *logger.Logger) *Classifier {
	if log == nil {
		log = logger.Nop()
	}
	return &Classifier{llm: llm, store: store, metrics: metrics, log: log}
}

// Classify scores the given headlines for ticker. Results are served from
// the store when the ticker was already classified today. Parse failures
// yield a neutral result that is NOT persisted, so the next run retries.
func (c *Classifier) Classify(ctx context.Context, ticker string, headlines []string) (*models.SentimentResult, error) {
	now := time.Now().UTC()
	day := util.DayKey(now)

	if c.store != nil {
		if cached, err := c.store.Get(ctx, ticker, day); err == nil && cached != nil {
			c.recordCache("hit")
			return cached, nil
		}
		c.recordCache("miss")
	}

	if len(headlines) == 0 {
		return &models.SentimentResult{
			Ticker:  ticker,
			Day:     day,
			Summary: "No fresh headlines",
			Score:   0,
			AsOf:    now,
		}, nil
	}

	if c.llm == nil {
		return nil, fmt.Errorf("sentiment: no model configured")
	}

	raw, err := c.llm.Invoke(ctx, buildPrompt(ticker, headlines))
	if err != nil {
		c.recordLLM("error")
		return nil, fmt.Errorf("sentiment: %w", err)
	}

	summary, score, ok := parseResponse(raw)
	if !ok {
		c.recordLLM("parse_error")
		c.log.Warn("sentiment response unparseable",
			logger.String("ticker", ticker),
			logger.Int("chars", len(raw)),
		)
		return &models.SentimentResult{
			Ticker:  ticker,
			Day:     day,
			Summary: "LLM parse error",
			Score:   0,
			AsOf:    now,
		}, nil
	}
	c.recordLLM("ok")

	result := &models.SentimentResult{
		Ticker:  ticker,
		Day:     day,
		Summary: summary,
		Score:   clampScore(score),
		AsOf:    now,
	}

	if c.store != nil {
		if err := c.store.Put(ctx, result); err != nil {
			c.log.Warn("sentiment persist failed", logger.Error(err))
		}
	}
	return result, nil
}

func buildPrompt(ticker string, headlines []string) string {
	lines := make([]string, 0, len(headlines))
	for _, h := range headlines {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		lines = append(lines, "- "+h)
	}
	return fmt.Sprintf(promptTemplate, ticker, strings.Join(lines, "\n"))
}

// parseResponse tries a strict JSON decode first, then salvages the first
// JSON object embedded in surrounding prose.
func parseResponse(raw string) (summary string, score float64, ok bool) {
	var payload struct {
		Summary string  `json:"summary"`
		Score   float64 `json:"score"`
	}

	trimmed := strings.TrimSpace(raw)
	if err := json.Unmarshal([]byte(trimmed), &payload); err == nil && payload.Summary != "" {
		return payload.Summary, payload.Score, true
	}

	if m := jsonObjectRe.FindString(trimmed); m != "" {
		if err := json.Unmarshal([]byte(m), &payload); err == nil && payload.Summary != "" {
			return payload.Summary, payload.Score, true
		}
	}
	return "", 0, false
}

func clampScore(s float64) float64 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}

func (c *Classifier) recordLLM(result string) {
	if c.metrics != nil {
		c.metrics.RecordLLMCall("sentiment", result)
	}
}

func (c *Classifier) recordCache(result string) {
	if c.metrics != nil {
		c.metrics.RecordCacheLookup("sentiment", result)
	}
}
