package news

import (
	"context"
	"html"
	"net/url"
	"regexp"
	"strings"
	"time"

	"wisetrade/internal/domain/models"
	"wisetrade/internal/fetch"
)

const ddgHTMLURL = "https://html.duckduckgo.com/html/"

// DuckDuckGoClient scrapes the HTML results page as a last-resort headline
// source when every finance vendor is down.
type DuckDuckGoClient struct {
	fetcher *fetch.HTTPFetcher
}

func NewDuckDuckGoClient(fetcher *fetch.HTTPFetcher) *DuckDuckGoClient {
	return &DuckDuckGoClient{fetcher: fetcher}
}

var ddgResultRe = regexp.MustCompile(`<a[^>]+class="result__a"[^>]+href="([^"]+)"[^>]*>(.*?)</a>`)
var tagRe = regexp.MustCompile(`<[^>]+>`)

// Headlines searches for recent news about ticker.
func (c *DuckDuckGoClient) Headlines(ctx context.Context, ticker string, limit int) ([]models.Article, error) {
	body, err := c.fetcher.GetRaw(ctx, "duckduckgo", ddgHTMLURL, map[string]string{
		"q": ticker + " stock news",
	}, map[string]string{
		"Accept":     "text/html",
		"User-Agent": "Mozilla/5.0 (compatible; wisetrade/1.0)",
	})
	if err != nil {
		return nil, err
	}

	matches := ddgResultRe.FindAllStringSubmatch(string(body), -1)
	now := time.Now().UTC()

	articles := make([]models.Article, 0, len(matches))
	for _, m := range matches {
		link := cleanDDGLink(m[1])
		title := strings.TrimSpace(html.UnescapeString(tagRe.ReplaceAllString(m[2], "")))
		if title == "" || link == "" {
			continue
		}
		articles = append(articles, models.Article{
			Ticker:      ticker,
			Title:       title,
			URL:         link,
			Publisher:   "DuckDuckGo",
			PublishedAt: now,
			Source:      "duckduckgo",
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

// cleanDDGLink unwraps the redirect DDG puts around result URLs.
func cleanDDGLink(raw string) string {
	u, err := url.Parse(html.UnescapeString(raw))
	if err != nil {
		return raw
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme == "" {
		return "https:" + raw
	}
	return u.String()
}
