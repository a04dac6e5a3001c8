package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"wisetrade/internal/advisor"
	"wisetrade/internal/domain/repository"
	"wisetrade/internal/marketdata"
	"wisetrade/pkg/logger"
)

// Config carries the cron specs and the ticker universe.
type Config struct {
	MarketRefresh string
	Indicators    string
	NightlyAdvice string
	Watchlist     []string
	LookbackDays  int
	JobTimeout    time.Duration
}

// Scheduler drives the periodic sweeps: intraday market refresh, the
// overnight indicator recompute and the nightly advice batch.
type Scheduler struct {
	cfg        Config
	cron       *cron.Cron
	market     *marketdata.Service
	engine     advisor.IndicatorEngine
	indicators repository.IndicatorStore
	runner     *advisor.Runner
	portfolios repository.PortfolioStore
	log        *logger.Logger
}

func New(cfg Config, market *marketdata.Service, engine advisor.IndicatorEngine, indicators repository.IndicatorStore, runner *advisor.Runner, portfolios repository.PortfolioStore, log *logger.Logger) *Scheduler {
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 365
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 20 * time.Minute
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		cfg:        cfg,
		cron:       cron.New(),
		market:     market,
		engine:     engine,
		indicators: indicators,
		runner:     runner,
		portfolios: portfolios,
		log:        log,
	}
}

// Start registers the jobs and begins the cron loop.
func (s *Scheduler) Start() error {
	if s.market != nil && s.cfg.MarketRefresh != "" {
		if _, err := s.cron.AddFunc(s.cfg.MarketRefresh, s.refreshMarket); err != nil {
			return err
		}
	}
	if s.market != nil && s.engine != nil && s.indicators != nil && s.cfg.Indicators != "" {
		if _, err := s.cron.AddFunc(s.cfg.Indicators, s.recomputeIndicators); err != nil {
			return err
		}
	}
	if s.runner != nil && s.cfg.NightlyAdvice != "" {
		if _, err := s.cron.AddFunc(s.cfg.NightlyAdvice, s.nightlyAdvice); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.log.Info("scheduler started",
		logger.String("market_refresh", s.cfg.MarketRefresh),
		logger.String("indicators", s.cfg.Indicators),
		logger.String("nightly_advice", s.cfg.NightlyAdvice),
		logger.Int("watchlist", len(s.cfg.Watchlist)),
	)
	return nil
}

// Stop halts the cron loop and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) refreshMarket() {
	if len(s.cfg.Watchlist) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
	defer cancel()

	start := time.Now()
	// short window on the periodic sweep, the overnight job backfills
	s.market.Refresh(ctx, s.cfg.Watchlist, 7)
	s.log.Info("market refresh sweep done",
		logger.Int("tickers", len(s.cfg.Watchlist)),
		logger.Duration("took", time.Since(start)),
	)
}

func (s *Scheduler) recomputeIndicators() {
	if len(s.cfg.Watchlist) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
	defer cancel()

	start := time.Now()
	stored := 0
	for _, ticker := range s.cfg.Watchlist {
		if ctx.Err() != nil {
			break
		}
		bars, err := s.market.History(ctx, ticker, s.cfg.LookbackDays)
		if err != nil {
			s.log.Warn("indicator recompute skipped", logger.String("ticker", ticker), logger.Error(err))
			continue
		}
		points := s.engine.ComputeSeries(bars)
		if len(points) == 0 {
			continue
		}
		if err := s.indicators.StorePoints(ctx, points); err != nil {
			s.log.Warn("indicator persist failed", logger.String("ticker", ticker), logger.Error(err))
			continue
		}
		stored++
	}
	s.log.Info("indicator recompute done",
		logger.Int("stored", stored),
		logger.Duration("took", time.Since(start)),
	)
}

// nightlyAdvice sweeps every stored portfolio with risk in scope, then the
// configured watchlist as ad-hoc runs.
func (s *Scheduler) nightlyAdvice() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
	defer cancel()

	start := time.Now()
	tickers, failed := 0, 0

	if s.portfolios != nil {
		list, err := s.portfolios.List(ctx, "")
		if err != nil {
			s.log.Warn("portfolio sweep skipped", logger.Error(err))
		}
		for _, p := range list {
			if ctx.Err() != nil {
				break
			}
			results, err := s.runner.RunPortfolio(ctx, p.ID)
			if err != nil {
				s.log.Warn("portfolio advice failed",
					logger.Int("portfolio", int(p.ID)),
					logger.Error(err),
				)
				continue
			}
			tickers += len(results)
			failed += countFailed(results)
		}
	}

	if len(s.cfg.Watchlist) > 0 && ctx.Err() == nil {
		results := s.runner.Run(ctx, s.cfg.Watchlist)
		tickers += len(results)
		failed += countFailed(results)
	}

	s.log.Info("nightly advice batch done",
		logger.Int("tickers", tickers),
		logger.Int("failed", failed),
		logger.Duration("took", time.Since(start)),
	)
}

func countFailed(results []advisor.Result) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
