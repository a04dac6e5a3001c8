package marketdata

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"wisetrade/internal/domain/models"
	"wisetrade/internal/fetch"
	"wisetrade/pkg/util"
)

const yahooChartURL = "https://query1.finance.yahoo.com/v8/finance/chart/"

// YahooClient reads daily OHLCV history from the Yahoo Finance chart API.
type YahooClient struct {
	fetcher *fetch.HTTPFetcher
}

func NewYahooClient(fetcher *fetch.HTTPFetcher) *YahooClient {
	return &YahooClient{fetcher: fetcher}
}

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// DailyBars fetches up to lookbackDays of daily candles for ticker.
func (c *YahooClient) DailyBars(ctx context.Context, ticker string, lookbackDays int) ([]models.Bar, error) {
	symbol := YahooSymbol(ticker)
	rangeParam := yahooRange(lookbackDays)

	var resp yahooChartResponse
	err := c.fetcher.GetJSON(ctx, "yahoo", yahooChartURL+url.PathEscape(symbol), map[string]string{
		"range":    rangeParam,
		"interval": "1d",
		"events":   "history",
	}, &resp)
	if err != nil {
		return nil, err
	}

	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart: %s (%s)", resp.Chart.Error.Description, resp.Chart.Error.Code)
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fetch.ErrEmpty
	}

	result := resp.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	bars := make([]models.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		// Yahoo pads missing sessions with nulls
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue
		}
		bar := models.Bar{
			Ticker:    ticker,
			SessionAt: util.TruncateDay(time.Unix(ts, 0)),
			Close:     *quote.Close[i],
			Source:    "yahoo",
		}
		if i < len(quote.Open) && quote.Open[i] != nil {
			bar.Open = *quote.Open[i]
		}
		if i < len(quote.High) && quote.High[i] != nil {
			bar.High = *quote.High[i]
		}
		if i < len(quote.Low) && quote.Low[i] != nil {
			bar.Low = *quote.Low[i]
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			bar.Volume = *quote.Volume[i]
		}
		bars = append(bars, bar)
	}

	if len(bars) == 0 {
		return nil, fetch.ErrEmpty
	}
	return bars, nil
}

func yahooRange(lookbackDays int) string {
	switch {
	case lookbackDays <= 0:
		return "1y"
	case lookbackDays <= 31:
		return "1mo"
	case lookbackDays <= 93:
		return "3mo"
	case lookbackDays <= 186:
		return "6mo"
	case lookbackDays <= 366:
		return "1y"
	case lookbackDays <= 731:
		return "2y"
	default:
		return "5y"
	}
}
