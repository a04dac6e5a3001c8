package marketdata

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"wisetrade/internal/domain/models"
	"wisetrade/internal/fetch"
	"wisetrade/pkg/retry"
	"wisetrade/pkg/util"
)

const fmpBaseURL = "https://financialmodelingprep.com/api/v3"

// FMPClient reads daily history from Financial Modeling Prep, the last link
// of the market data chain.
type FMPClient struct {
	fetcher *fetch.HTTPFetcher
	apiKey  string
}

func NewFMPClient(fetcher *fetch.HTTPFetcher, apiKey string) *FMPClient {
	return &FMPClient{fetcher: fetcher, apiKey: apiKey}
}

func (c *FMPClient) Enabled() bool { return c.apiKey != "" }

type fmpHistoricalResponse struct {
	Symbol     string `json:"symbol"`
	Historical []struct {
		Date   string  `json:"date"`
		Open   float64 `json:"open"`
		High   float64 `json:"high"`
		Low    float64 `json:"low"`
		Close  float64 `json:"close"`
		Volume float64 `json:"volume"`
	} `json:"historical"`
}

// DailyBars fetches lookbackDays of candles, oldest first.
func (c *FMPClient) DailyBars(ctx context.Context, ticker string, lookbackDays int) ([]models.Bar, error) {
	if !c.Enabled() {
		return nil, retry.Permanent(fmt.Errorf("fmp: no api key"))
	}

	var resp fmpHistoricalResponse
	err := c.fetcher.GetJSON(ctx, "fmp",
		fmpBaseURL+"/historical-price-full/"+url.PathEscape(ticker),
		map[string]string{
			"timeseries": fmt.Sprintf("%d", lookbackDays),
			"apikey":     c.apiKey,
		}, &resp)
	if err != nil {
		return nil, err
	}

	if len(resp.Historical) == 0 {
		return nil, fetch.ErrEmpty
	}

	bars := make([]models.Bar, 0, len(resp.Historical))
	for _, row := range resp.Historical {
		sessionAt, ok := util.ParseDay(row.Date)
		if !ok || row.Close == 0 {
			continue
		}
		bars = append(bars, models.Bar{
			Ticker:    ticker,
			SessionAt: sessionAt,
			Open:      row.Open,
			High:      row.High,
			Low:       row.Low,
			Close:     row.Close,
			Volume:    row.Volume,
			Source:    "fmp",
		})
	}

	if len(bars) == 0 {
		return nil, fetch.ErrEmpty
	}

	// FMP returns newest first
	sort.Slice(bars, func(i, j int) bool { return bars[i].SessionAt.Before(bars[j].SessionAt) })
	return bars, nil
}
