package sentiment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wisetrade/internal/domain/models"
	"wisetrade/internal/domain/service"
	"wisetrade/pkg/logger"
	"wisetrade/pkg/util"
)

// maxConstituents caps how many holdings are classified per basket. Each
// constituent may cost a model call, so the tail is cut early.
const maxConstituents = 5

// HeadlineSource supplies recent headline titles for a ticker.
type HeadlineSource interface {
	HeadlineTitles(ctx context.Context, ticker string, limit int) ([]string, error)
}

// BasketAggregator scores an ETF or index by classifying its top
// constituents and averaging the scores.
type BasketAggregator struct {
	classifier *Classifier
	headlines  HeadlineSource
	llm        service.LLM
	newsLimit  int
	log        *logger.Logger
}

func NewBasketAggregator(classifier *Classifier, headlines HeadlineSource, llm service.LLM, newsLimit int, log *logger.Logger) *BasketAggregator {
	if newsLimit <= 0 {
		newsLimit = 40
	}
	if log == nil {
		log = logger.Nop()
	}
	return &BasketAggregator{
		classifier: classifier,
		headlines:  headlines,
		llm:        llm,
		newsLimit:  newsLimit,
		log:        log,
	}
}

// Aggregate classifies up to five constituents and averages their scores.
// Constituents whose classification fails are skipped; if all fail the
// result says so with a neutral score.
func (a *BasketAggregator) Aggregate(ctx context.Context, basket *models.Basket) (*models.SentimentResult, error) {
	now := time.Now().UTC()
	holdings := basket.Holdings
	if len(holdings) > maxConstituents {
		holdings = holdings[:maxConstituents]
	}

	type scored struct {
		ticker string
		score  float64
	}
	results := make([]scored, 0, len(holdings))

	for _, h := range holdings {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ticker := a.resolveTicker(ctx, h)
		titles, err := a.headlines.HeadlineTitles(ctx, ticker, a.newsLimit)
		if err != nil {
			a.log.Warn("basket constituent news failed",
				logger.String("basket", basket.Ticker),
				logger.String("constituent", ticker),
				logger.Error(err),
			)
			continue
		}

		res, err := a.classifier.Classify(ctx, ticker, titles)
		if err != nil {
			a.log.Warn("basket constituent sentiment failed",
				logger.String("constituent", ticker),
				logger.Error(err),
			)
			continue
		}
		results = append(results, scored{ticker: ticker, score: res.Score})
	}

	out := &models.SentimentResult{
		Ticker: basket.Ticker,
		Day:    util.DayKey(now),
		AsOf:   now,
	}

	if len(results) == 0 {
		out.Summary = fmt.Sprintf("Could not determine sentiment for %d constituents.", len(holdings))
		return out, nil
	}

	parts := make([]string, 0, len(results))
	total := 0.0
	for _, r := range results {
		total += r.score
		parts = append(parts, fmt.Sprintf("%s: %.2f", r.ticker, r.score))
	}

	out.Score = total / float64(len(results))
	out.Summary = fmt.Sprintf("Aggregated sentiment for %d constituents: %s", len(results), strings.Join(parts, "; "))
	return out, nil
}

// resolveTicker maps a holding to a searchable symbol. Multi-word
// identifiers (company names reported instead of symbols) are translated
// with the model; translation failure keeps the original.
func (a *BasketAggregator) resolveTicker(ctx context.Context, h models.Holding) string {
	symbol := strings.TrimSpace(h.Symbol)
	if symbol == "" {
		symbol = strings.TrimSpace(h.Name)
	}
	if !strings.Contains(symbol, " ") || a.llm == nil {
		return symbol
	}

	prompt := fmt.Sprintf("What is the stock ticker symbol for %q? Reply with just the ticker, nothing else.", symbol)
	raw, err := a.llm.Invoke(ctx, prompt)
	if err != nil {
		a.log.Warn("ticker translation failed", logger.String("name", symbol), logger.Error(err))
		return symbol
	}

	candidate := strings.ToUpper(strings.TrimSpace(strings.Trim(raw, "`\"'.")))
	if candidate == "" || strings.Contains(candidate, " ") || len(candidate) > 10 {
		return symbol
	}
	return candidate
}
