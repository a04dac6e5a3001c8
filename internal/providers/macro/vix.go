package macro

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"wisetrade/internal/domain/models"
	"wisetrade/internal/fetch"
	"wisetrade/internal/providers/marketdata"
	"wisetrade/pkg/cache"
	"wisetrade/pkg/logger"
)

const (
	vixTicker      = "^VIX"
	defaultFREDURL = "https://api.stlouisfed.org/fred/series/observations"
)

// VIX regime thresholds.
const (
	riskOffLevel = 25.0
	neutralLevel = 18.0
)

// Known regimes cache longer than unknown ones so a transient VIX outage
// is retried sooner.
const (
	knownRegimeTTL   = 15 * time.Minute
	unknownRegimeTTL = 5 * time.Minute
)

// Service classifies the market risk regime from the VIX level. The Yahoo
// chart is the primary source; when an API key is configured, the FRED
// VIXCLS series backs it up.
type Service struct {
	bars    *marketdata.Fetcher
	fetcher *fetch.HTTPFetcher
	fredKey string
	fredURL string
	cache   cache.Service
	log     *logger.Logger
}

func NewService(bars *marketdata.Fetcher, fetcher *fetch.HTTPFetcher, fredKey string, c cache.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		bars:    bars,
		fetcher: fetcher,
		fredKey: fredKey,
		fredURL: defaultFREDURL,
		cache:   c,
		log:     log,
	}
}

// Snapshot returns the current macro regime. A failed VIX fetch degrades to
// RegimeUnknown instead of failing the pipeline.
func (s *Service) Snapshot(ctx context.Context) *models.MacroSnapshot {
	if s.cache != nil {
		var cached models.MacroSnapshot
		if err := s.cache.Get(ctx, "macro:regime", &cached); err == nil {
			return &cached
		}
	}

	snap := s.classify(ctx)

	if s.cache != nil {
		ttl := knownRegimeTTL
		if snap.Regime == models.RegimeUnknown {
			ttl = unknownRegimeTTL
		}
		_ = s.cache.Set(ctx, "macro:regime", snap, ttl)
	}
	return snap
}

func (s *Service) classify(ctx context.Context) *models.MacroSnapshot {
	now := time.Now().UTC()

	level, err := s.vixLevel(ctx)
	if err != nil {
		s.log.Warn("vix unavailable, macro regime unknown", logger.Error(err))
		return &models.MacroSnapshot{Regime: models.RegimeUnknown, AsOf: now}
	}

	regime := models.RegimeRiskOn
	switch {
	case level > riskOffLevel:
		regime = models.RegimeRiskOff
	case level > neutralLevel:
		regime = models.RegimeNeutral
	}

	return &models.MacroSnapshot{Regime: regime, VIX: level, AsOf: now}
}

func (s *Service) vixLevel(ctx context.Context) (float64, error) {
	var chartErr error
	if s.bars != nil {
		bars, _, err := s.bars.DailyBars(ctx, vixTicker, 10)
		if err == nil && len(bars) > 0 {
			return bars[len(bars)-1].Close, nil
		}
		chartErr = err
		if chartErr == nil {
			chartErr = fmt.Errorf("chart returned no sessions")
		}
		s.log.Warn("vix chart fetch failed, trying fred", logger.Error(chartErr))
	}

	level, fredErr := s.fredVIX(ctx)
	if fredErr == nil {
		return level, nil
	}
	if chartErr != nil {
		return 0, fmt.Errorf("chart: %v; fred: %w", chartErr, fredErr)
	}
	return 0, fredErr
}

// fredVIX reads the newest VIXCLS observation. FRED reports market holidays
// as ".", so a few latest rows are requested and scanned for a number.
func (s *Service) fredVIX(ctx context.Context) (float64, error) {
	if s.fetcher == nil || s.fredKey == "" {
		return 0, fmt.Errorf("fred not configured")
	}

	var payload struct {
		Observations []struct {
			Date  string `json:"date"`
			Value string `json:"value"`
		} `json:"observations"`
	}
	params := map[string]string{
		"series_id":  "VIXCLS",
		"api_key":    s.fredKey,
		"file_type":  "json",
		"sort_order": "desc",
		"limit":      "5",
	}
	if err := s.fetcher.GetJSON(ctx, "fred", s.fredURL, params, &payload); err != nil {
		return 0, fmt.Errorf("fred vixcls: %w", err)
	}

	for _, obs := range payload.Observations {
		if obs.Value == "." || obs.Value == "" {
			continue
		}
		level, err := strconv.ParseFloat(obs.Value, 64)
		if err != nil {
			continue
		}
		return level, nil
	}
	return 0, fmt.Errorf("fred vixcls: no numeric observation")
}
