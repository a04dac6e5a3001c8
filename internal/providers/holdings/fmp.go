package holdings

import (
	"context"
	"fmt"
	"net/url"

	"wisetrade/internal/domain/models"
	"wisetrade/internal/fetch"
	"wisetrade/pkg/retry"
)

const fmpBaseURL = "https://financialmodelingprep.com/api/v3"

// FMPClient reads ETF constituents from Financial Modeling Prep.
type FMPClient struct {
	fetcher *fetch.HTTPFetcher
	apiKey  string
}

func NewFMPClient(fetcher *fetch.HTTPFetcher, apiKey string) *FMPClient {
	return &FMPClient{fetcher: fetcher, apiKey: apiKey}
}

func (c *FMPClient) Enabled() bool { return c.apiKey != "" }

type fmpHolderRow struct {
	Asset         string  `json:"asset"`
	Name          string  `json:"name"`
	WeightPercent float64 `json:"weightPercentage"`
}

// TopHoldings fetches ETF constituents with their weights. FMP reports
// weights as percentages.
func (c *FMPClient) TopHoldings(ctx context.Context, ticker string) ([]models.Holding, error) {
	if !c.Enabled() {
		return nil, retry.Permanent(fmt.Errorf("fmp: no api key"))
	}

	var rows []fmpHolderRow
	err := c.fetcher.GetJSON(ctx, "fmp",
		fmpBaseURL+"/etf-holder/"+url.PathEscape(ticker),
		map[string]string{"apikey": c.apiKey}, &rows)
	if err != nil {
		return nil, err
	}

	out := make([]models.Holding, 0, len(rows))
	for _, row := range rows {
		if row.Asset == "" && row.Name == "" {
			continue
		}
		symbol := row.Asset
		if symbol == "" {
			symbol = row.Name
		}
		out = append(out, models.Holding{
			Symbol: symbol,
			Name:   row.Name,
			Weight: row.WeightPercent,
		})
	}

	if len(out) == 0 {
		return nil, fetch.ErrEmpty
	}
	return out, nil
}
