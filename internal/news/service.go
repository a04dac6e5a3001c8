package news

import (
	"context"
	"sort"
	"time"

	"wisetrade/internal/domain/models"
	"wisetrade/internal/domain/repository"
	"wisetrade/internal/providers/news"
	"wisetrade/pkg/logger"
)

// Service acquires recent headlines through the vendor chain, deduplicates
// them by URL, persists them and serves the freshest slice.
type Service struct {
	chain         *news.Fetcher
	store         repository.ArticleStore
	lookbackHours int
	limit         int
	log           *logger.Logger
}

func NewService(chain *news.Fetcher, store repository.ArticleStore, lookbackHours, limit int, log *logger.Logger) *Service {
	if lookbackHours <= 0 {
		lookbackHours = 72
	}
	if limit <= 0 {
		limit = 40
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{chain: chain, store: store, lookbackHours: lookbackHours, limit: limit, log: log}
}

// Recent returns up to the configured limit of fresh articles for ticker,
// newest first. Vendor output is merged with stored history so a degraded
// chain still surfaces yesterday's headlines.
func (s *Service) Recent(ctx context.Context, ticker string) ([]models.Article, error) {
	since := time.Now().Add(-time.Duration(s.lookbackHours) * time.Hour)

	fetched, source, err := s.chain.Headlines(ctx, ticker, s.limit)
	if err != nil {
		s.log.Warn("news chain exhausted", logger.String("ticker", ticker), logger.Error(err))
	} else {
		s.log.Debug("headlines fetched",
			logger.String("ticker", ticker),
			logger.String("source", source),
			logger.Int("count", len(fetched)),
		)
		if s.store != nil {
			if err := s.store.Upsert(ctx, fetched); err != nil {
				s.log.Warn("news persist failed", logger.Error(err))
			}
		}
	}

	merged := fetched
	if s.store != nil {
		stored, serr := s.store.Recent(ctx, ticker, since, s.limit)
		if serr == nil {
			merged = append(merged, stored...)
		}
	}

	out := Dedup(merged)
	out = filterSince(out, since)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	if len(out) > s.limit {
		out = out[:s.limit]
	}
	return out, nil
}

// HeadlineTitles adapts Recent for the sentiment classifier.
func (s *Service) HeadlineTitles(ctx context.Context, ticker string, limit int) ([]string, error) {
	articles, err := s.Recent(ctx, ticker)
	if err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(articles))
	for _, a := range articles {
		titles = append(titles, a.Title)
		if limit > 0 && len(titles) >= limit {
			break
		}
	}
	return titles, nil
}

// Dedup keeps the first article seen per URL.
func Dedup(articles []models.Article) []models.Article {
	seen := make(map[string]struct{}, len(articles))
	out := make([]models.Article, 0, len(articles))
	for _, a := range articles {
		if a.URL == "" {
			continue
		}
		if _, ok := seen[a.URL]; ok {
			continue
		}
		seen[a.URL] = struct{}{}
		out = append(out, a)
	}
	return out
}

func filterSince(articles []models.Article, since time.Time) []models.Article {
	out := articles[:0]
	for _, a := range articles {
		if a.PublishedAt.Before(since) {
			continue
		}
		out = append(out, a)
	}
	return out
}
