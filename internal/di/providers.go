package di

import (
	"context"
	"fmt"
	"time"

	"wisetrade/internal/advisor"
	"wisetrade/internal/basket"
	domrepo "wisetrade/internal/domain/repository"
	domsvc "wisetrade/internal/domain/service"
	"wisetrade/internal/fetch"
	"wisetrade/internal/handler/api"
	"wisetrade/internal/indicators"
	"wisetrade/internal/marketdata"
	"wisetrade/internal/news"
	"wisetrade/internal/notify"
	fxprov "wisetrade/internal/providers/fx"
	holdingsprov "wisetrade/internal/providers/holdings"
	macroprov "wisetrade/internal/providers/macro"
	mdprov "wisetrade/internal/providers/marketdata"
	newsprov "wisetrade/internal/providers/news"
	"wisetrade/internal/providers/screener"
	internalrepo "wisetrade/internal/repository"
	"wisetrade/internal/risk"
	"wisetrade/internal/scheduler"
	"wisetrade/internal/sentiment"
	"wisetrade/internal/service/llm"
	"wisetrade/internal/service/ratelimit"
	"wisetrade/internal/synth"
	"wisetrade/pkg/cache"
	pkgch "wisetrade/pkg/clickhouse"
	"wisetrade/pkg/config"
	xhttp "wisetrade/pkg/http"
	pkgkafka "wisetrade/pkg/kafka"
	applogger "wisetrade/pkg/logger"
	"wisetrade/pkg/metrics"
	"wisetrade/pkg/server"
)

func newIndicatorEngine(log *applogger.Logger) advisor.IndicatorEngine {
	return indicators.NewEngine(log)
}

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideCache builds the fetch cache: memory-only, or memory over Redis
// when Redis is configured.
func ProvideCache(cfg *config.Config, log *applogger.Logger) cache.Service {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache()
	}

	redisCache, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix("wisetrade"),
	)
	if err != nil {
		log.Warn("redis unavailable, falling back to memory cache", applogger.Error(err))
		return cache.NewMemoryCache()
	}
	return cache.NewLayeredCache(redisCache)
}

// ProvideLimiter creates the per-vendor rate limiter. Free tiers are tight:
// Alpha Vantage allows ~5 req/min, FMP ~250 req/day.
func ProvideLimiter() *ratelimit.Limiter {
	l := ratelimit.New(4, 2)
	l.SetRate("alphavantage", 5, 5.0/60)
	l.SetRate("fmp", 4, 10.0/60)
	l.SetRate("exchangerate", 4, 10.0/60)
	return l
}

// ProvideHTTPClient creates the outbound HTTP client.
func ProvideHTTPClient(cfg *config.Config) *xhttp.Client {
	return xhttp.NewClient(xhttp.WithTimeout(cfg.Providers.Timeout))
}

// ProvideFetcher creates the cached, rate limited HTTP fetcher shared by
// every provider client.
func ProvideFetcher(client *xhttp.Client, c cache.Service, limiter *ratelimit.Limiter, cfg *config.Config) *fetch.HTTPFetcher {
	return fetch.NewHTTPFetcher(client, c, limiter, cfg.Providers.CacheTTL)
}

// ProvideClickHouseClient creates the ClickHouse client, or nil when the
// time-series store is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideBarStore creates the ClickHouse bar store and initializes its
// schema. Without ClickHouse the pipeline runs provider-only.
func ProvideBarStore(ch *pkgch.Client, log *applogger.Logger) (domrepo.BarStore, error) {
	if ch == nil {
		return nil, nil
	}
	store := internalrepo.NewCHBarStore(ch)
	store.SetLogger(log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("bar schema: %w", err)
	}
	return store, nil
}

// ProvideIndicatorStore creates the ClickHouse indicator store.
func ProvideIndicatorStore(ch *pkgch.Client, log *applogger.Logger) domrepo.IndicatorStore {
	if ch == nil {
		return nil
	}
	store := internalrepo.NewCHIndicatorStore(ch)
	store.SetLogger(log)
	return store
}

// ProvideGormStore opens the relational database.
func ProvideGormStore(cfg *config.Config) (*internalrepo.GormStore, error) {
	return internalrepo.NewGormStore(cfg.Database.Driver, cfg.Database.DSN)
}

// ProvideLLM creates the configured language model client, or nil for
// rules-only deployments.
func ProvideLLM(cfg *config.Config, log *applogger.Logger) (domsvc.LLM, error) {
	switch cfg.LLM.Backend {
	case "gemini":
		client, err := llm.NewGeminiClient(context.Background(), cfg.LLM.Model, cfg.LLM.Temperature, cfg.LLM.Timeout, log)
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		return client, nil
	case "ollama":
		return llm.NewOllamaClient(cfg.LLM.OllamaURL, cfg.LLM.Model, cfg.LLM.Temperature, cfg.LLM.Timeout, log), nil
	default:
		return nil, nil
	}
}

// ProvideMarketChain wires the bar provider fallback chain.
func ProvideMarketChain(fetcher *fetch.HTTPFetcher, cfg *config.Config, log *applogger.Logger, m domrepo.Metrics) *mdprov.Fetcher {
	return mdprov.NewFetcher(mdprov.ChainConfig{
		Yahoo:        mdprov.NewYahooClient(fetcher),
		AlphaVantage: mdprov.NewAlphaVantageClient(fetcher, cfg.Providers.AlphaVantageKey),
		FMP:          mdprov.NewFMPClient(fetcher, cfg.Providers.FMPKey),
		Timeout:      cfg.Providers.Timeout,
		Log:          log,
		Metrics:      m,
	})
}

// ProvideNewsChain wires the headline provider fallback chain.
func ProvideNewsChain(fetcher *fetch.HTTPFetcher, cfg *config.Config, log *applogger.Logger, m domrepo.Metrics) *newsprov.Fetcher {
	return newsprov.NewFetcher(newsprov.ChainConfig{
		Yahoo:        newsprov.NewYahooClient(fetcher),
		AlphaVantage: newsprov.NewAlphaVantageClient(fetcher, cfg.Providers.AlphaVantageKey),
		RSS:          newsprov.NewRSSClient(fetcher),
		DuckDuckGo:   newsprov.NewDuckDuckGoClient(fetcher),
		Timeout:      cfg.Providers.Timeout,
		Log:          log,
		Metrics:      m,
	})
}

// ProvideHoldingsChain wires the ETF holdings fallback chain.
func ProvideHoldingsChain(fetcher *fetch.HTTPFetcher, cfg *config.Config, log *applogger.Logger, m domrepo.Metrics) *holdingsprov.Fetcher {
	return holdingsprov.NewFetcher(holdingsprov.ChainConfig{
		Yahoo:   holdingsprov.NewYahooClient(fetcher),
		FMP:     holdingsprov.NewFMPClient(fetcher, cfg.Providers.FMPKey),
		Timeout: cfg.Providers.Timeout,
		Log:     log,
		Metrics: m,
	})
}

// ProvideMarketService creates the store-first bar service.
func ProvideMarketService(chain *mdprov.Fetcher, bars domrepo.BarStore, m domrepo.Metrics, log *applogger.Logger) *marketdata.Service {
	return marketdata.NewService(chain, bars, m, log)
}

// ProvideNewsService creates the article acquisition service.
func ProvideNewsService(chain *newsprov.Fetcher, store *internalrepo.GormStore, cfg *config.Config, log *applogger.Logger) *news.Service {
	return news.NewService(chain, store, cfg.Advice.NewsLookbackHours, cfg.Advice.NewsLimit, log)
}

// ProvideBasketService creates the ETF decomposition service.
func ProvideBasketService(chain *holdingsprov.Fetcher, c cache.Service, cfg *config.Config, log *applogger.Logger) *basket.Service {
	return basket.NewService(chain, c, cfg.Advice.TopHoldings, log)
}

// ProvideMacroService creates the VIX regime service. With a FRED key the
// VIXCLS series backs up the Yahoo chart.
func ProvideMacroService(chain *mdprov.Fetcher, fetcher *fetch.HTTPFetcher, cfg *config.Config, c cache.Service, log *applogger.Logger) *macroprov.Service {
	return macroprov.NewService(chain, fetcher, cfg.Providers.FREDKey, c, log)
}

// ProvideFXClient creates the FX rate client.
func ProvideFXClient(fetcher *fetch.HTTPFetcher, c cache.Service) *fxprov.Client {
	return fxprov.NewClient(fetcher, c)
}

// ProvideScreener creates the hot-tickers screener.
func ProvideScreener(fetcher *fetch.HTTPFetcher, cfg *config.Config, log *applogger.Logger, m domrepo.Metrics) *screener.Service {
	return screener.New(fetcher, cfg.Providers.FMPKey, log, m, cfg.Providers.Timeout)
}

// ProvideRiskAnalyser creates the portfolio risk analyser over the bar
// service.
func ProvideRiskAnalyser(market *marketdata.Service, cfg *config.Config, log *applogger.Logger) *risk.Analyser {
	return risk.NewAnalyser(market, cfg.Advice.Benchmark, cfg.Advice.RiskWindow, log)
}

// ProvideClassifier creates the sentiment classifier.
func ProvideClassifier(model domsvc.LLM, store *internalrepo.GormStore, m domrepo.Metrics, log *applogger.Logger) *sentiment.Classifier {
	return sentiment.NewClassifier(model, store, m, log)
}

// ProvideBasketAggregator creates the constituent sentiment aggregator.
func ProvideBasketAggregator(classifier *sentiment.Classifier, headlines *news.Service, model domsvc.LLM, cfg *config.Config, log *applogger.Logger) *sentiment.BasketAggregator {
	return sentiment.NewBasketAggregator(classifier, headlines, model, cfg.Advice.NewsLimit, log)
}

// ProvidePipelines builds one pipeline per synthesizer. The rules pipeline
// always exists; the llm one only when a model is configured.
func ProvidePipelines(
	cfg *config.Config,
	market *marketdata.Service,
	indicators domrepo.IndicatorStore,
	headlines *news.Service,
	baskets *basket.Service,
	classifier *sentiment.Classifier,
	basketAgg *sentiment.BasketAggregator,
	macroSvc *macroprov.Service,
	analyser *risk.Analyser,
	store *internalrepo.GormStore,
	model domsvc.LLM,
	m domrepo.Metrics,
	log *applogger.Logger,
) map[string]*advisor.Pipeline {
	deps := advisor.Deps{
		Market:     market,
		Engine:     newIndicatorEngine(log),
		Indicators: indicators,
		News:       headlines,
		Baskets:    baskets,
		Classifier: classifier,
		BasketAgg:  basketAgg,
		Macro:      macroSvc,
		Risk:       analyser,
		Portfolios: store.Portfolios(),
		Advices:    store.Advices(),
		Metrics:    m,
		Log:        log,
	}
	pcfg := advisor.Config{
		LookbackDays: cfg.Advice.LookbackDays,
		NewsLimit:    cfg.Advice.NewsLimit,
	}

	pipelines := make(map[string]*advisor.Pipeline, 2)

	rulesDeps := deps
	rulesDeps.Synth = synth.NewRuleSynthesizer()
	pipelines["rules"] = advisor.NewPipeline(pcfg, rulesDeps)

	if model != nil {
		llmDeps := deps
		llmDeps.Synth = synth.NewLLMSynthesizer(model, m, log)
		pipelines["llm"] = advisor.NewPipeline(pcfg, llmDeps)
	}
	return pipelines
}

// ProvideKafkaProducer creates the advice event producer, or nil when the
// event bus is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Notify.Kafka.Enabled || len(cfg.Notify.Kafka.Brokers) == 0 {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Notify.Kafka.Brokers),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideNotifiers assembles the configured advice sinks.
func ProvideNotifiers(cfg *config.Config, producer *pkgkafka.Producer, log *applogger.Logger) []domsvc.Notifier {
	var notifiers []domsvc.Notifier
	if cfg.Notify.SMTP.Enabled {
		notifiers = append(notifiers, notify.NewMailNotifier(notify.MailConfig{
			Host:     cfg.Notify.SMTP.Host,
			Port:     cfg.Notify.SMTP.Port,
			Username: cfg.Notify.SMTP.Username,
			Password: cfg.Notify.SMTP.Password,
			From:     cfg.Notify.SMTP.From,
			To:       cfg.Notify.SMTP.To,
		}, log))
	}
	if producer != nil {
		notifiers = append(notifiers, notify.NewKafkaNotifier(producer, cfg.Notify.Kafka.Topic, log))
	}
	return notifiers
}

// ProvideRunner creates the batch runner used by the scheduler. The nightly
// sweep uses the default synthesizer.
func ProvideRunner(cfg *config.Config, pipelines map[string]*advisor.Pipeline, notifiers []domsvc.Notifier, log *applogger.Logger) *advisor.Runner {
	pipeline := pipelines[cfg.Advice.Synthesizer]
	if pipeline == nil {
		pipeline = pipelines["rules"]
	}
	return advisor.NewRunner(pipeline, cfg.Advice.Concurrency, log, notifiers...)
}

// ProvideScheduler creates the cron scheduler, or nil when disabled.
func ProvideScheduler(cfg *config.Config, market *marketdata.Service, indicators domrepo.IndicatorStore, runner *advisor.Runner, store *internalrepo.GormStore, log *applogger.Logger) *scheduler.Scheduler {
	if !cfg.Scheduler.Enabled {
		return nil
	}
	return scheduler.New(scheduler.Config{
		MarketRefresh: cfg.Scheduler.MarketRefresh,
		Indicators:    cfg.Scheduler.Indicators,
		NightlyAdvice: cfg.Scheduler.NightlyAdvice,
		Watchlist:     cfg.Advice.Watchlist,
		LookbackDays:  cfg.Advice.LookbackDays,
	}, market, newIndicatorEngine(log), indicators, runner, store.Portfolios(), log)
}

// ProvideHandlers builds the HTTP surface.
func ProvideHandlers(
	cfg *config.Config,
	pipelines map[string]*advisor.Pipeline,
	store *internalrepo.GormStore,
	analyser *risk.Analyser,
	scr *screener.Service,
	fxClient *fxprov.Client,
	log *applogger.Logger,
) []xhttp.Handler {
	advice := api.NewAdviceHandler(
		log,
		pipelines,
		store.Advices(),
		store.Portfolios(),
		analyser,
		scr,
		fxClient,
		cfg.Advice.Concurrency,
	)
	portfolio := api.NewPortfolioHandler(log, store.Portfolios())
	return []xhttp.Handler{advice, portfolio}
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	handlers []xhttp.Handler,
	sched *scheduler.Scheduler,
	chClient *pkgch.Client,
	store *internalrepo.GormStore,
	producer *pkgkafka.Producer,
) *server.App {
	return server.New(cfg, log, handlers, sched, chClient, store, producer)
}
