//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"BubbleScope/pkg/config"
	"BubbleScope/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideCache,

		// Repositories
		ProvidePriceSource,
		ProvideSelectionStore,
		ProvideResultCache,
		ProvideHub,
		ProvideResultPublisher,

		// Engine
		ProvideThresholds,
		ProvideSelector,
		ProvideHistory,
		ProvideValidator,

		// Use cases
		ProvideFitSeriesUseCase,
		ProvideValidateEpisodeUseCase,
		ProvideResultsUseCase,

		// HTTP
		ProvideLimiter,
		ProvideFittingHandler,
		ProvideHealthHandler,
		ProvideHTTPServer,

		ProvideApp,
	)
	return &server.App{}, nil
}
