//go:build wireinject
// +build wireinject

package di

import (
	"wisetrade/pkg/config"
	"wisetrade/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Shared plumbing
		ProvideCache,
		ProvideLimiter,
		ProvideHTTPClient,
		ProvideFetcher,

		// Storage
		ProvideClickHouseClient,
		ProvideBarStore,
		ProvideIndicatorStore,
		ProvideGormStore,

		// Provider chains
		ProvideMarketChain,
		ProvideNewsChain,
		ProvideHoldingsChain,

		// Domain services
		ProvideLLM,
		ProvideMarketService,
		ProvideNewsService,
		ProvideBasketService,
		ProvideMacroService,
		ProvideFXClient,
		ProvideScreener,
		ProvideRiskAnalyser,
		ProvideClassifier,
		ProvideBasketAggregator,
		ProvidePipelines,

		// Delivery
		ProvideKafkaProducer,
		ProvideNotifiers,
		ProvideRunner,
		ProvideScheduler,
		ProvideHandlers,
		ProvideApp,
	)
	return &server.App{}, nil
}
