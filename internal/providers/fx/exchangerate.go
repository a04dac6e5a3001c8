package fx

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wisetrade/internal/domain/models"
	"wisetrade/internal/fetch"
	"wisetrade/pkg/cache"
	"wisetrade/pkg/logger"
)

const (
	exchangeRateURL = "https://api.exchangerate.host/convert"
	frankfurterURL  = "https://api.frankfurter.app/latest"
)

// Client reads spot FX rates, exchangerate.host first with a
// frankfurter.app fallback. Rates are cached for an hour; intraday
// precision is not needed for position valuation.
type Client struct {
	fetcher *fetch.HTTPFetcher
	cache   cache.Service
	log     *logger.Logger
}

func NewClient(fetcher *fetch.HTTPFetcher, c cache.Service) *Client {
	return &Client{fetcher: fetcher, cache: c, log: logger.Nop()}
}

type convertResponse struct {
	Success bool `json:"success"`
	Info    struct {
		Rate float64 `json:"rate"`
	} `json:"info"`
	Result float64 `json:"result"`
}

type frankfurterResponse struct {
	Rates map[string]float64 `json:"rates"`
}

// Rate returns the conversion rate from base to quote.
func (c *Client) Rate(ctx context.Context, base, quote string) (*models.FXRate, error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	quote = strings.ToUpper(strings.TrimSpace(quote))
	if base == quote {
		return &models.FXRate{Base: base, Quote: quote, Rate: 1, AsOf: time.Now().UTC(), Source: "identity"}, nil
	}

	key := fmt.Sprintf("fx:%s:%s", base, quote)
	return cache.GetOr(ctx, c.cache, key, time.Hour, func(ctx context.Context) (*models.FXRate, error) {
		chain := fetch.NewChain[*models.FXRate]("fx", c.log, nil,
			fetch.Provider[*models.FXRate]{
				Name: "exchangerate",
				Fetch: func(ctx context.Context) (*models.FXRate, error) {
					return c.fromExchangeRate(ctx, base, quote)
				},
			},
			fetch.Provider[*models.FXRate]{
				Name: "frankfurter",
				Fetch: func(ctx context.Context) (*models.FXRate, error) {
					return c.fromFrankfurter(ctx, base, quote)
				},
			},
		)
		rate, _, err := chain.First(ctx)
		return rate, err
	})
}

func (c *Client) fromExchangeRate(ctx context.Context, base, quote string) (*models.FXRate, error) {
	var resp convertResponse
	err := c.fetcher.GetJSON(ctx, "exchangerate", exchangeRateURL, map[string]string{
		"from":   base,
		"to":     quote,
		"amount": "1",
	}, &resp)
	if err != nil {
		return nil, err
	}

	rate := resp.Result
	if rate == 0 {
		rate = resp.Info.Rate
	}
	if rate == 0 {
		return nil, fetch.ErrEmpty
	}

	return &models.FXRate{
		Base:   base,
		Quote:  quote,
		Rate:   rate,
		AsOf:   time.Now().UTC(),
		Source: "exchangerate.host",
	}, nil
}

func (c *Client) fromFrankfurter(ctx context.Context, base, quote string) (*models.FXRate, error) {
	var resp frankfurterResponse
	err := c.fetcher.GetJSON(ctx, "frankfurter", frankfurterURL, map[string]string{
		"from": base,
		"to":   quote,
	}, &resp)
	if err != nil {
		return nil, err
	}

	rate, ok := resp.Rates[quote]
	if !ok || rate == 0 {
		return nil, fetch.ErrEmpty
	}

	return &models.FXRate{
		Base:   base,
		Quote:  quote,
		Rate:   rate,
		AsOf:   time.Now().UTC(),
		Source: "frankfurter.app",
	}, nil
}
