package marketdata

import (
	"context"
	"fmt"
	"time"

	"wisetrade/internal/domain/models"
	"wisetrade/internal/domain/repository"
	"wisetrade/internal/providers/marketdata"
	"wisetrade/pkg/logger"
	"wisetrade/pkg/util"
)

// staleAfter is how old the newest stored session may be before providers
// are consulted again. Weekends make two calendar days normal.
const staleAfter = 3 * 24 * time.Hour

// Service acquires OHLCV history store-first: fresh rows are served from
// the bar store, everything else goes through the provider chain and is
// persisted on the way back.
type Service struct {
	chain   *marketdata.Fetcher
	store   repository.BarStore
	metrics repository.Metrics
	log     *logger.Logger
}

func NewService(chain *marketdata.Fetcher, store repository.BarStore, metrics repository.Metrics, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{chain: chain, store: store, metrics: metrics, log: log}
}

// History returns lookbackDays of daily bars for ticker, oldest first.
func (s *Service) History(ctx context.Context, ticker string, lookbackDays int) ([]models.Bar, error) {
	from := util.TruncateDay(time.Now().AddDate(0, 0, -lookbackDays))
	to := util.TruncateDay(time.Now())

	if s.store != nil {
		last, err := s.store.LastSession(ctx, ticker)
		if err == nil && time.Since(last) < staleAfter {
			bars, err := s.store.Query(ctx, ticker, from, to)
			if err == nil && len(bars) > 0 {
				s.recordCache("hit")
				return bars, nil
			}
		}
		s.recordCache("miss")
	}

	bars, source, err := s.chain.DailyBars(ctx, ticker, lookbackDays)
	if err != nil {
		// provider outage: stale stored history beats nothing
		if s.store != nil {
			if stored, qerr := s.store.Query(ctx, ticker, from, to); qerr == nil && len(stored) > 0 {
				s.log.Warn("serving stale bars, providers exhausted",
					logger.String("ticker", ticker),
					logger.Error(err),
				)
				return stored, nil
			}
		}
		return nil, fmt.Errorf("market data for %s: %w", ticker, err)
	}

	s.log.Debug("bars fetched",
		logger.String("ticker", ticker),
		logger.String("source", source),
		logger.Int("sessions", len(bars)),
	)

	if s.store != nil {
		if err := s.store.StoreBatch(ctx, bars); err != nil {
			s.log.Warn("bar persist failed", logger.String("ticker", ticker), logger.Error(err))
		}
	}

	if s.metrics != nil && len(bars) > 0 {
		s.metrics.RecordLastPrice(ticker, bars[len(bars)-1].Close)
	}
	return bars, nil
}

// LastPrice returns the newest close for ticker.
func (s *Service) LastPrice(ctx context.Context, ticker string) (*models.Quote, error) {
	bars, err := s.History(ctx, ticker, 7)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no sessions for %s", ticker)
	}
	last := bars[len(bars)-1]
	return &models.Quote{Ticker: ticker, Price: last.Close, AsOf: last.SessionAt}, nil
}

// Refresh re-fetches history for tickers, used by the scheduler. Failures
// are logged per ticker and do not abort the sweep.
func (s *Service) Refresh(ctx context.Context, tickers []string, lookbackDays int) {
	for _, ticker := range tickers {
		if err := ctx.Err(); err != nil {
			return
		}
		bars, source, err := s.chain.DailyBars(ctx, ticker, lookbackDays)
		if err != nil {
			s.log.Warn("refresh failed", logger.String("ticker", ticker), logger.Error(err))
			continue
		}
		if s.store != nil {
			if err := s.store.StoreBatch(ctx, bars); err != nil {
				s.log.Warn("refresh persist failed", logger.String("ticker", ticker), logger.Error(err))
				continue
			}
		}
		s.log.Info("bars refreshed",
			logger.String("ticker", ticker),
			logger.String("source", source),
			logger.Int("sessions", len(bars)),
		)
	}
}

func (s *Service) recordCache(result string) {
	if s.metrics != nil {
		s.metrics.RecordCacheLookup("bars", result)
	}
}
