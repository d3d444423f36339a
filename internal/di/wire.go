//go:build wireinject
// +build wireinject

package di

import (
	"WorthWatch/pkg/config"
	"WorthWatch/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Data access
		ProvideLedger,
		ProvideClickHouseClient,
		ProvideHistoryStore,

		// Messaging
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideHub,
		ProvideEventPublisher,

		// Caching and queueing
		ProvideRedisClient,
		ProvideCache,
		ProvideQueue,

		// Pipeline and use cases
		ProvideBuilder,
		ProvideDashboardUseCase,
		ProvideEntriesUseCase,
		ProvideRateSource,
		ProvideRatesUseCase,
		ProvideRebuildJob,
		ProvideMonthProcessor,
		ProvideIngestGuard,
		ProvideKafkaMonthsHandler,

		// HTTP surface
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
