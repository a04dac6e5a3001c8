package screener

import (
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"wisetrade/internal/domain/models"
	"wisetrade/internal/domain/repository"
	"wisetrade/internal/fetch"
	"wisetrade/pkg/logger"
	"wisetrade/pkg/retry"
)

const (
	fmpActivesURL = "https://financialmodelingprep.com/api/v3/stock_market/actives"
	stooqQuoteURL = "https://stooq.com/q/l/"
)

// defaultStooqSymbols is the static watchlist used when the screener vendor
// is unavailable. Stooq quotes US tickers with a .us suffix.
var defaultStooqSymbols = []string{"aapl.us", "msft.us", "nvda.us", "amzn.us", "tsla.us", "googl.us", "meta.us", "amd.us", "intc.us", "nflx.us"}

// Service surfaces the day's most active tickers, FMP first with a Stooq
// CSV fallback.
type Service struct {
	fetcher *fetch.HTTPFetcher
	apiKey  string
	log     *logger.Logger
	metrics repository.Metrics
	timeout time.Duration
}

func New(fetcher *fetch.HTTPFetcher, fmpKey string, log *logger.Logger, metrics repository.Metrics, timeout time.Duration) *Service {
	if log == nil {
		log = logger.Nop()
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Service{fetcher: fetcher, apiKey: fmpKey, log: log, metrics: metrics, timeout: timeout}
}

type fmpActiveRow struct {
	Symbol            string  `json:"symbol"`
	Name              string  `json:"name"`
	Price             float64 `json:"price"`
	ChangesPercentage float64 `json:"changesPercentage"`
}

// HotTickers returns up to limit of today's most active tickers.
func (s *Service) HotTickers(ctx context.Context, limit int) ([]models.HotTicker, error) {
	chain := fetch.NewChain("screener", s.log, s.metrics,
		fetch.Provider[[]models.HotTicker]{
			Name:    "fmp",
			Timeout: s.timeout,
			Fetch: fetch.NonEmptySlice(func(ctx context.Context) ([]models.HotTicker, error) {
				return s.fromFMP(ctx, limit)
			}),
		},
		fetch.Provider[[]models.HotTicker]{
			Name:    "stooq",
			Timeout: s.timeout,
			Fetch: fetch.NonEmptySlice(func(ctx context.Context) ([]models.HotTicker, error) {
				return s.fromStooq(ctx, limit)
			}),
		},
	)

	out, _, err := chain.First(ctx)
	return out, err
}

func (s *Service) fromFMP(ctx context.Context, limit int) ([]models.HotTicker, error) {
	if s.apiKey == "" {
		return nil, retry.Permanent(fmt.Errorf("fmp: no api key"))
	}

	var rows []fmpActiveRow
	if err := s.fetcher.GetJSON(ctx, "fmp", fmpActivesURL, map[string]string{"apikey": s.apiKey}, &rows); err != nil {
		return nil, err
	}

	out := make([]models.HotTicker, 0, len(rows))
	for _, row := range rows {
		if row.Symbol == "" {
			continue
		}
		out = append(out, models.HotTicker{
			Ticker:        row.Symbol,
			Name:          row.Name,
			Price:         row.Price,
			ChangePercent: row.ChangesPercentage,
		})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// fromStooq quotes a fixed watchlist and ranks it by absolute daily move.
func (s *Service) fromStooq(ctx context.Context, limit int) ([]models.HotTicker, error) {
	body, err := s.fetcher.GetRaw(ctx, "stooq", stooqQuoteURL, map[string]string{
		"s": strings.Join(defaultStooqSymbols, " "),
		"f": "sd2t2ohlcv",
		"h": "",
		"e": "csv",
	}, map[string]string{"Accept": "text/csv"})
	if err != nil {
		return nil, err
	}

	records, err := csv.NewReader(strings.NewReader(string(body))).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse stooq csv: %w", err)
	}
	if len(records) < 2 {
		return nil, fetch.ErrEmpty
	}

	out := make([]models.HotTicker, 0, len(records)-1)
	for _, rec := range records[1:] {
		// Symbol,Date,Time,Open,High,Low,Close,Volume
		if len(rec) < 8 {
			continue
		}
		open, _ := strconv.ParseFloat(rec[3], 64)
		closePx, _ := strconv.ParseFloat(rec[6], 64)
		volume, _ := strconv.ParseFloat(rec[7], 64)
		if closePx == 0 {
			continue
		}
		change := 0.0
		if open > 0 {
			change = (closePx - open) / open * 100
		}
		out = append(out, models.HotTicker{
			Ticker:        strings.ToUpper(strings.TrimSuffix(rec[0], ".US")),
			Price:         closePx,
			ChangePercent: change,
			Volume:        volume,
		})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
