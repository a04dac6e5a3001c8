package marketdata

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"wisetrade/internal/domain/models"
	"wisetrade/internal/fetch"
	"wisetrade/pkg/retry"
	"wisetrade/pkg/util"
)

const alphaVantageURL = "https://www.alphavantage.co/query"

// AlphaVantageClient reads daily series from Alpha Vantage. The free tier
// answers throttled requests with HTTP 200 plus a "Note" body, which is
// treated as a hard failure so the chain moves on.
type AlphaVantageClient struct {
	fetcher *fetch.HTTPFetcher
	apiKey  string
}

func NewAlphaVantageClient(fetcher *fetch.HTTPFetcher, apiKey string) *AlphaVantageClient {
	return &AlphaVantageClient{fetcher: fetcher, apiKey: apiKey}
}

func (c *AlphaVantageClient) Enabled() bool { return c.apiKey != "" }

type avDailyResponse struct {
	Note        string                       `json:"Note"`
	Information string                       `json:"Information"`
	ErrorMsg    string                       `json:"Error Message"`
	Series      map[string]map[string]string `json:"Time Series (Daily)"`
}

// DailyBars fetches the daily series and keeps the trailing lookbackDays.
func (c *AlphaVantageClient) DailyBars(ctx context.Context, ticker string, lookbackDays int) ([]models.Bar, error) {
	if !c.Enabled() {
		return nil, retry.Permanent(fmt.Errorf("alphavantage: no api key"))
	}

	symbol := AlphaVantageSymbol(ticker)
	outputSize := "compact"
	if lookbackDays > 100 {
		outputSize = "full"
	}

	var resp avDailyResponse
	err := c.fetcher.GetJSON(ctx, "alphavantage", alphaVantageURL, map[string]string{
		"function":   "TIME_SERIES_DAILY",
		"symbol":     symbol,
		"outputsize": outputSize,
		"apikey":     c.apiKey,
	}, &resp)
	if err != nil {
		return nil, err
	}

	if resp.Note != "" || resp.Information != "" {
		return nil, fmt.Errorf("alphavantage: throttled")
	}
	if resp.ErrorMsg != "" {
		return nil, fmt.Errorf("alphavantage: %s", resp.ErrorMsg)
	}
	if len(resp.Series) == 0 {
		return nil, fetch.ErrEmpty
	}

	cutoff := util.TruncateDay(time.Now().AddDate(0, 0, -lookbackDays))

	bars := make([]models.Bar, 0, len(resp.Series))
	for day, row := range resp.Series {
		sessionAt, ok := util.ParseDay(day)
		if !ok || sessionAt.Before(cutoff) {
			continue
		}
		bar := models.Bar{
			Ticker:    ticker,
			SessionAt: sessionAt,
			Open:      avFloat(row["1. open"]),
			High:      avFloat(row["2. high"]),
			Low:       avFloat(row["3. low"]),
			Close:     avFloat(row["4. close"]),
			Volume:    avFloat(row["5. volume"]),
			Source:    "alphavantage",
		}
		if bar.Close == 0 {
			continue
		}
		bars = append(bars, bar)
	}

	if len(bars) == 0 {
		return nil, fetch.ErrEmpty
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].SessionAt.Before(bars[j].SessionAt) })
	return bars, nil
}

func avFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
