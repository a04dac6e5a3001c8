package holdings

import (
	"context"
	"fmt"
	"net/url"

	"wisetrade/internal/domain/models"
	"wisetrade/internal/fetch"
)

const yahooQuoteSummaryURL = "https://query2.finance.yahoo.com/v10/finance/quoteSummary/"

// YahooClient reads ETF top holdings from the quoteSummary API.
type YahooClient struct {
	fetcher *fetch.HTTPFetcher
}

func NewYahooClient(fetcher *fetch.HTTPFetcher) *YahooClient {
	return &YahooClient{fetcher: fetcher}
}

type yahooQuoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			TopHoldings struct {
				Holdings []struct {
					Symbol         string `json:"symbol"`
					HoldingName    string `json:"holdingName"`
					HoldingPercent struct {
						Raw float64 `json:"raw"`
					} `json:"holdingPercent"`
				} `json:"holdings"`
			} `json:"topHoldings"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

// TopHoldings fetches ETF constituents with their weights.
func (c *YahooClient) TopHoldings(ctx context.Context, ticker string) ([]models.Holding, error) {
	var resp yahooQuoteSummaryResponse
	err := c.fetcher.GetJSON(ctx, "yahoo",
		yahooQuoteSummaryURL+url.PathEscape(ticker),
		map[string]string{"modules": "topHoldings"}, &resp)
	if err != nil {
		return nil, err
	}

	if resp.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("yahoo quoteSummary: %s", resp.QuoteSummary.Error.Description)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, fetch.ErrEmpty
	}

	raw := resp.QuoteSummary.Result[0].TopHoldings.Holdings
	out := make([]models.Holding, 0, len(raw))
	for _, h := range raw {
		if h.Symbol == "" && h.HoldingName == "" {
			continue
		}
		symbol := h.Symbol
		if symbol == "" {
			symbol = h.HoldingName
		}
		out = append(out, models.Holding{
			Symbol: symbol,
			Name:   h.HoldingName,
			Weight: h.HoldingPercent.Raw,
		})
	}

	if len(out) == 0 {
		return nil, fetch.ErrEmpty
	}
	return out, nil
}
