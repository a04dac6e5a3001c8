package basket

import (
	"context"
	"errors"
	"sort"
	"time"

	"wisetrade/internal/domain/models"
	"wisetrade/internal/fetch"
	"wisetrade/internal/providers/holdings"
	"wisetrade/pkg/cache"
	"wisetrade/pkg/logger"
)

// basketTTL keeps decompositions for half a day; ETF constituents move
// slowly.
const basketTTL = 12 * time.Hour

// Service decomposes ETFs and index trackers into their top constituents.
type Service struct {
	holdings *holdings.Fetcher
	cache    cache.Service
	topN     int
	log      *logger.Logger
}

func NewService(h *holdings.Fetcher, c cache.Service, topN int, log *logger.Logger) *Service {
	if topN <= 0 {
		topN = 10
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{holdings: h, cache: c, topN: topN, log: log}
}

// Decompose returns the basket for ticker. A ticker no vendor reports
// holdings for is a plain instrument: the basket comes back empty rather
// than as an error, and that answer is cached too.
func (s *Service) Decompose(ctx context.Context, ticker string) (*models.Basket, error) {
	return cache.GetOr(ctx, s.cache, "basket:"+ticker, basketTTL, func(ctx context.Context) (*models.Basket, error) {
		raw, source, err := s.holdings.TopHoldings(ctx, ticker)
		if err != nil {
			if errors.Is(err, fetch.ErrExhausted) {
				return &models.Basket{Ticker: ticker}, nil
			}
			return nil, err
		}

		normalized := truncateTopN(Normalize(raw), s.topN)

		s.log.Debug("basket decomposed",
			logger.String("ticker", ticker),
			logger.String("source", source),
			logger.Int("holdings", len(normalized)),
		)
		return &models.Basket{Ticker: ticker, Holdings: normalized}, nil
	})
}

// truncateTopN keeps the n heaviest holdings. The cut drops tail weight, so
// the kept subset is rescaled back to a full unit.
func truncateTopN(holdings []models.Holding, n int) []models.Holding {
	if len(holdings) <= n {
		return holdings
	}
	return Normalize(holdings[:n])
}

// Normalize converts vendor weights to fractions summing to one, sorted by
// weight descending. Vendors disagree on units: any weight above 1.01 means
// the whole set is percentages.
func Normalize(raw []models.Holding) []models.Holding {
	if len(raw) == 0 {
		return nil
	}

	out := make([]models.Holding, len(raw))
	copy(out, raw)

	percentScale := false
	for _, h := range out {
		if h.Weight > 1.01 {
			percentScale = true
			break
		}
	}
	if percentScale {
		for i := range out {
			out[i].Weight /= 100
		}
	}

	total := 0.0
	for _, h := range out {
		total += h.Weight
	}
	if total > 0 {
		for i := range out {
			out[i].Weight /= total
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Weight > out[j].Weight })
	return out
}
