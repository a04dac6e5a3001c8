package advisor

import (
	"context"
	"fmt"
	"time"

	"wisetrade/internal/domain/models"
	"wisetrade/internal/domain/repository"
	"wisetrade/internal/domain/service"
	"wisetrade/pkg/logger"
)

// Stage names, in dependency order.
const (
	StageMarket    = "market"
	StageTechnical = "technical"
	StageRisk      = "risk"
	StageNewsMacro = "news_macro"
	StageSynthesis = "synthesis"
)

// Collaborator contracts, satisfied by the concrete services.

type MarketSource interface {
	History(ctx context.Context, ticker string, lookbackDays int) ([]models.Bar, error)
}

type IndicatorEngine interface {
	ComputeSeries(bars []models.Bar) []models.IndicatorPoint
}

type HeadlineSource interface {
	HeadlineTitles(ctx context.Context, ticker string, limit int) ([]string, error)
}

type BasketSource interface {
	Decompose(ctx context.Context, ticker string) (*models.Basket, error)
}

type SentimentSource interface {
	Classify(ctx context.Context, ticker string, headlines []string) (*models.SentimentResult, error)
}

type BasketScorer interface {
	Aggregate(ctx context.Context, basket *models.Basket) (*models.SentimentResult, error)
}

type MacroSource interface {
	Snapshot(ctx context.Context) *models.MacroSnapshot
}

type RiskSource interface {
	Analyse(ctx context.Context, p *models.Portfolio) *models.RiskMetrics
}

// Config holds pipeline tuning.
type Config struct {
	LookbackDays int
	NewsLimit    int
}

// Pipeline advises one ticker by walking a fixed stage graph:
//
//	market -> technical -> risk -> news_macro -> synthesis
//
// A failed upstream stage degrades its dependents instead of aborting;
// synthesis always runs on whatever evidence was collected.
type Pipeline struct {
	cfg Config

	market     MarketSource
	engine     IndicatorEngine
	indicators repository.IndicatorStore
	news       HeadlineSource
	baskets    BasketSource
	classifier SentimentSource
	basketAgg  BasketScorer
	macro      MacroSource
	risk       RiskSource
	portfolios repository.PortfolioStore
	synth      service.Synthesizer
	advices    repository.AdviceStore
	metrics    repository.Metrics
	log        *logger.Logger
}

// Deps bundles the pipeline's collaborators. Optional members may be nil;
// their stages are skipped.
type Deps struct {
	Market     MarketSource
	Engine     IndicatorEngine
	Indicators repository.IndicatorStore
	News       HeadlineSource
	Baskets    BasketSource
	Classifier SentimentSource
	BasketAgg  BasketScorer
	Macro      MacroSource
	Risk       RiskSource
	Portfolios repository.PortfolioStore
	Synth      service.Synthesizer
	Advices    repository.AdviceStore
	Metrics    repository.Metrics
	Log        *logger.Logger
}

func NewPipeline(cfg Config, deps Deps) *Pipeline {
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 365
	}
	if cfg.NewsLimit <= 0 {
		cfg.NewsLimit = 40
	}
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Pipeline{
		cfg:        cfg,
		market:     deps.Market,
		engine:     deps.Engine,
		indicators: deps.Indicators,
		news:       deps.News,
		baskets:    deps.Baskets,
		classifier: deps.Classifier,
		basketAgg:  deps.BasketAgg,
		macro:      deps.Macro,
		risk:       deps.Risk,
		portfolios: deps.Portfolios,
		synth:      deps.Synth,
		advices:    deps.Advices,
		metrics:    deps.Metrics,
		log:        log,
	}
}

// Advise runs the full pipeline for ticker without portfolio context.
func (p *Pipeline) Advise(ctx context.Context, ticker string) (*models.Advice, error) {
	return p.advise(ctx, ticker, nil)
}

// AdviseForPortfolio runs the pipeline with risk metrics computed over the
// given portfolio.
func (p *Pipeline) AdviseForPortfolio(ctx context.Context, ticker string, portfolioID uint) (*models.Advice, error) {
	if p.portfolios == nil {
		return nil, fmt.Errorf("advisor: no portfolio store configured")
	}
	portfolio, err := p.portfolios.Get(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	return p.advise(ctx, ticker, portfolio)
}

func (p *Pipeline) advise(ctx context.Context, ticker string, portfolio *models.Portfolio) (*models.Advice, error) {
	state := models.NewPipelineState(ticker, time.Now().UTC())

	p.runStage(ctx, state, StageMarket, func(ctx context.Context) error {
		return p.marketStage(ctx, state)
	})
	p.runStage(ctx, state, StageTechnical, func(ctx context.Context) error {
		return p.technicalStage(ctx, state)
	})
	p.runStage(ctx, state, StageRisk, func(ctx context.Context) error {
		return p.riskStage(ctx, state, portfolio)
	})
	p.runStage(ctx, state, StageNewsMacro, func(ctx context.Context) error {
		return p.newsMacroStage(ctx, state)
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	advice, err := p.synthesize(ctx, state)
	if err != nil {
		return nil, err
	}
	if portfolio != nil {
		advice.PortfolioID = portfolio.ID
	}

	if p.advices != nil {
		if err := p.advices.Save(ctx, advice); err != nil {
			p.log.Warn("advice persist failed", logger.String("ticker", ticker), logger.Error(err))
		}
	}
	if p.metrics != nil {
		p.metrics.RecordAdvice(string(advice.Action))
	}
	return advice, nil
}

// runStage executes one node, tracks its status and records its latency.
// Stage errors degrade the run rather than aborting it; only context
// cancellation stops the walk.
func (p *Pipeline) runStage(ctx context.Context, state *models.PipelineState, name string, fn func(ctx context.Context) error) {
	if ctx.Err() != nil {
		state.Stages[name] = models.StageSkipped
		return
	}

	start := time.Now()
	err := fn(ctx)
	if p.metrics != nil {
		p.metrics.RecordStageDuration(name, time.Since(start).Seconds())
	}

	switch {
	case err == nil:
		if state.Stages[name] == "" {
			state.Stages[name] = models.StageOK
		}
	case ctx.Err() != nil:
		state.Stages[name] = models.StageSkipped
	default:
		state.Stages[name] = models.StageFailed
		state.Note(fmt.Sprintf("%s unavailable: %v", name, err))
		p.log.Warn("pipeline stage failed",
			logger.String("ticker", state.Ticker),
			logger.String("stage", name),
			logger.Error(err),
		)
	}
}

func (p *Pipeline) marketStage(ctx context.Context, state *models.PipelineState) error {
	if p.market == nil {
		state.Stages[StageMarket] = models.StageSkipped
		return nil
	}

	bars, err := p.market.History(ctx, state.Ticker, p.cfg.LookbackDays)
	if err != nil {
		return err
	}
	state.Bars = bars
	if n := len(bars); n > 0 {
		last := bars[n-1]
		state.LastPrice = &models.Quote{Ticker: state.Ticker, Price: last.Close, AsOf: last.SessionAt}
	}
	return nil
}

func (p *Pipeline) technicalStage(ctx context.Context, state *models.PipelineState) error {
	if p.engine == nil {
		state.Stages[StageTechnical] = models.StageSkipped
		return nil
	}
	if len(state.Bars) == 0 {
		state.Stages[StageTechnical] = models.StageSkipped
		state.Note("indicators skipped: no price history")
		return nil
	}

	points := p.engine.ComputeSeries(state.Bars)
	if len(points) == 0 {
		state.Stages[StageTechnical] = models.StageDegraded
		state.Note("indicators skipped: insufficient history")
		return nil
	}
	state.Indicators = models.LatestIndicators(points)

	if p.indicators != nil {
		if err := p.indicators.StorePoints(ctx, points); err != nil {
			p.log.Warn("indicator persist failed", logger.String("ticker", state.Ticker), logger.Error(err))
		}
	}
	return nil
}

func (p *Pipeline) riskStage(ctx context.Context, state *models.PipelineState, portfolio *models.Portfolio) error {
	if p.risk == nil || portfolio == nil {
		state.Stages[StageRisk] = models.StageSkipped
		return nil
	}
	state.Risk = p.risk.Analyse(ctx, portfolio)
	if state.Risk.Note != "" {
		state.Stages[StageRisk] = models.StageDegraded
	}
	return nil
}

func (p *Pipeline) newsMacroStage(ctx context.Context, state *models.PipelineState) error {
	if p.macro != nil {
		state.Macro = p.macro.Snapshot(ctx)
	}

	if p.classifier == nil {
		state.Stages[StageNewsMacro] = models.StageDegraded
		state.Note("sentiment skipped: no classifier configured")
		return nil
	}

	// Baskets are scored through their constituents, plain tickers through
	// their own headlines.
	if p.baskets != nil && p.basketAgg != nil {
		b, err := p.baskets.Decompose(ctx, state.Ticker)
		if err == nil && b.IsBasket() {
			state.Basket = b
			res, aerr := p.basketAgg.Aggregate(ctx, b)
			if aerr != nil {
				return aerr
			}
			state.Sentiment = res
			return nil
		}
		if err != nil {
			p.log.Warn("basket decomposition failed", logger.String("ticker", state.Ticker), logger.Error(err))
		}
	}

	var titles []string
	if p.news != nil {
		var err error
		titles, err = p.news.HeadlineTitles(ctx, state.Ticker, p.cfg.NewsLimit)
		if err != nil {
			state.Note(fmt.Sprintf("news degraded: %v", err))
		}
	}

	res, err := p.classifier.Classify(ctx, state.Ticker, titles)
	if err != nil {
		return err
	}
	state.Sentiment = res
	return nil
}

func (p *Pipeline) synthesize(ctx context.Context, state *models.PipelineState) (*models.Advice, error) {
	if p.synth == nil {
		return nil, fmt.Errorf("advisor: no synthesizer configured")
	}

	start := time.Now()
	advice, err := p.synth.Synthesize(ctx, state)
	if p.metrics != nil {
		p.metrics.RecordStageDuration(StageSynthesis, time.Since(start).Seconds())
	}
	if err != nil {
		state.Stages[StageSynthesis] = models.StageFailed
		return nil, fmt.Errorf("synthesize %s: %w", state.Ticker, err)
	}
	state.Stages[StageSynthesis] = models.StageOK
	return advice, nil
}
