package advisor

import (
	"context"
	"fmt"
	"sync"

	"wisetrade/internal/domain/models"
	"wisetrade/internal/domain/service"
	"wisetrade/pkg/logger"
)

// Result pairs one ticker's outcome within a batch.
type Result struct {
	Ticker string
	Advice *models.Advice
	Err    error
}

// Runner fans a batch of tickers across a bounded pool of pipeline runs.
// One ticker's failure never stops the rest.
type Runner struct {
	pipeline    *Pipeline
	notifiers   []service.Notifier
	concurrency int
	log         *logger.Logger
}

func NewRunner(pipeline *Pipeline, concurrency int, log *logger.Logger, notifiers ...service.Notifier) *Runner {
	if concurrency <= 0 {
		concurrency = 4
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{
		pipeline:    pipeline,
		notifiers:   notifiers,
		concurrency: concurrency,
		log:         log,
	}
}

// Run advises every ticker and returns results in input order.
// Cancellation stops scheduling new tickers; in-flight runs observe ctx.
func (r *Runner) Run(ctx context.Context, tickers []string) []Result {
	return r.run(ctx, tickers, nil)
}

// RunPortfolio advises every position of the portfolio with risk metrics in
// scope, upserting each advice on (portfolio, ticker).
func (r *Runner) RunPortfolio(ctx context.Context, portfolioID uint) ([]Result, error) {
	if r.pipeline.portfolios == nil {
		return nil, fmt.Errorf("advisor: no portfolio store configured")
	}
	portfolio, err := r.pipeline.portfolios.Get(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(portfolio.Positions))
	tickers := make([]string, 0, len(portfolio.Positions))
	for _, pos := range portfolio.Positions {
		if seen[pos.Ticker] {
			continue
		}
		seen[pos.Ticker] = true
		tickers = append(tickers, pos.Ticker)
	}

	return r.run(ctx, tickers, portfolio), nil
}

func (r *Runner) run(ctx context.Context, tickers []string, portfolio *models.Portfolio) []Result {
	results := make([]Result, len(tickers))

	var wg sync.WaitGroup
	sem := make(chan struct{}, r.concurrency)

	for i, ticker := range tickers {
		if ctx.Err() != nil {
			results[i] = Result{Ticker: ticker, Err: ctx.Err()}
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(i int, ticker string) {
			defer wg.Done()
			defer func() { <-sem }()

			advice, err := r.pipeline.advise(ctx, ticker, portfolio)
			results[i] = Result{Ticker: ticker, Advice: advice, Err: err}
			if err != nil {
				r.log.Warn("batch advise failed", logger.String("ticker", ticker), logger.Error(err))
			}
		}(i, ticker)
	}
	wg.Wait()

	r.notify(ctx, results)
	return results
}

// notify forwards actionable advice (anything but HOLD), and only when every
// ticker in the batch was evaluated. A partial batch is never announced.
func (r *Runner) notify(ctx context.Context, results []Result) {
	if len(r.notifiers) == 0 || len(results) == 0 {
		return
	}

	for _, res := range results {
		if res.Err != nil || res.Advice == nil {
			r.log.Info("notification withheld, batch incomplete",
				logger.String("ticker", res.Ticker),
			)
			return
		}
	}

	actionable := make([]*models.Advice, 0, len(results))
	for _, res := range results {
		if res.Advice.Action == models.ActionHold {
			continue
		}
		actionable = append(actionable, res.Advice)
	}
	if len(actionable) == 0 {
		return
	}

	for _, n := range r.notifiers {
		if err := n.Notify(ctx, actionable); err != nil {
			r.log.Warn("notify failed", logger.String("notifier", n.Name()), logger.Error(err))
		}
	}
}
