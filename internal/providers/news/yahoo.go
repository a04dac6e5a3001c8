package news

import (
	"context"
	"time"

	"wisetrade/internal/domain/models"
	"wisetrade/internal/fetch"
)

const yahooSearchURL = "https://query1.finance.yahoo.com/v1/finance/search"

// YahooClient reads recent headlines from the Yahoo Finance search API.
type YahooClient struct {
	fetcher *fetch.HTTPFetcher
}

func NewYahooClient(fetcher *fetch.HTTPFetcher) *YahooClient {
	return &YahooClient{fetcher: fetcher}
}

type yahooSearchResponse struct {
	News []struct {
		Title               string `json:"title"`
		Publisher           string `json:"publisher"`
		Link                string `json:"link"`
		ProviderPublishTime int64  `json:"providerPublishTime"`
	} `json:"news"`
}

// Headlines fetches up to limit articles for ticker.
func (c *YahooClient) Headlines(ctx context.Context, ticker string, limit int) ([]models.Article, error) {
	var resp yahooSearchResponse
	err := c.fetcher.GetJSON(ctx, "yahoo", yahooSearchURL, map[string]string{
		"q":           ticker,
		"newsCount":   "40",
		"quotesCount": "0",
	}, &resp)
	if err != nil {
		return nil, err
	}

	articles := make([]models.Article, 0, len(resp.News))
	for _, n := range resp.News {
		if n.Title == "" || n.Link == "" {
			continue
		}
		articles = append(articles, models.Article{
			Ticker:      ticker,
			Title:       n.Title,
			URL:         n.Link,
			Publisher:   n.Publisher,
			PublishedAt: time.Unix(n.ProviderPublishTime, 0).UTC(),
			Source:      "yahoo",
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
