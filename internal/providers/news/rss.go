package news

import (
	"context"
	"encoding/xml"
	"fmt"
	"time"

	"wisetrade/internal/domain/models"
	"wisetrade/internal/fetch"
	"wisetrade/pkg/util"
)

const yahooRSSURL = "https://feeds.finance.yahoo.com/rss/2.0/headline"

// RSSClient reads the Yahoo Finance per-ticker RSS feed.
type RSSClient struct {
	fetcher *fetch.HTTPFetcher
}

func NewRSSClient(fetcher *fetch.HTTPFetcher) *RSSClient {
	return &RSSClient{fetcher: fetcher}
}

type rssFeed struct {
	Channel struct {
		Items []struct {
			Title   string `xml:"title"`
			Link    string `xml:"link"`
			PubDate string `xml:"pubDate"`
		} `xml:"item"`
	} `xml:"channel"`
}

// Headlines fetches up to limit articles for ticker.
func (c *RSSClient) Headlines(ctx context.Context, ticker string, limit int) ([]models.Article, error) {
	body, err := c.fetcher.GetRaw(ctx, "yahoo", yahooRSSURL, map[string]string{
		"s":      ticker,
		"region": "US",
		"lang":   "en-US",
	}, map[string]string{"Accept": "application/rss+xml, application/xml"})
	if err != nil {
		return nil, err
	}

	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("parse rss: %w", err)
	}

	articles := make([]models.Article, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		if item.Title == "" || item.Link == "" {
			continue
		}
		articles = append(articles, models.Article{
			Ticker:      ticker,
			Title:       item.Title,
			URL:         item.Link,
			Publisher:   "Yahoo Finance RSS",
			PublishedAt: util.ParseTimeDefault(item.PubDate, time.Now().UTC()),
			Source:      "yahoo_rss",
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
