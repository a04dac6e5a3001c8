package news

import (
	"context"
	"fmt"
	"time"

	"wisetrade/internal/domain/models"
	"wisetrade/internal/fetch"
	"wisetrade/pkg/retry"
	"wisetrade/pkg/util"
)

const alphaVantageURL = "https://www.alphavantage.co/query"

// AlphaVantageClient reads the NEWS_SENTIMENT feed.
type AlphaVantageClient struct {
	fetcher *fetch.HTTPFetcher
	apiKey  string
}

func NewAlphaVantageClient(fetcher *fetch.HTTPFetcher, apiKey string) *AlphaVantageClient {
	return &AlphaVantageClient{fetcher: fetcher, apiKey: apiKey}
}

func (c *AlphaVantageClient) Enabled() bool { return c.apiKey != "" }

type avNewsResponse struct {
	Note        string `json:"Note"`
	Information string `json:"Information"`
	Feed        []struct {
		Title         string `json:"title"`
		URL           string `json:"url"`
		TimePublished string `json:"time_published"`
		Source        string `json:"source"`
	} `json:"feed"`
}

// Headlines fetches up to limit articles for ticker.
func (c *AlphaVantageClient) Headlines(ctx context.Context, ticker string, limit int) ([]models.Article, error) {
	if !c.Enabled() {
		return nil, retry.Permanent(fmt.Errorf("alphavantage: no api key"))
	}

	var resp avNewsResponse
	err := c.fetcher.GetJSON(ctx, "alphavantage", alphaVantageURL, map[string]string{
		"function": "NEWS_SENTIMENT",
		"tickers":  ticker,
		"limit":    fmt.Sprintf("%d", max(limit, 1)),
		"apikey":   c.apiKey,
	}, &resp)
	if err != nil {
		return nil, err
	}

	if resp.Note != "" || resp.Information != "" {
		return nil, fmt.Errorf("alphavantage: throttled")
	}
	if len(resp.Feed) == 0 {
		return nil, fetch.ErrEmpty
	}

	articles := make([]models.Article, 0, len(resp.Feed))
	for _, item := range resp.Feed {
		if item.Title == "" || item.URL == "" {
			continue
		}
		articles = append(articles, models.Article{
			Ticker:      ticker,
			Title:       item.Title,
			URL:         item.URL,
			Publisher:   item.Source,
			PublishedAt: util.ParseTimeDefault(item.TimePublished, time.Now().UTC()),
			Source:      "alphavantage",
		})
		if limit > 0 && len(articles) >= limit {
			break
		}
	}

	if len(articles) == 0 {
		return nil, fetch.ErrEmpty
	}
	return articles, nil
}
