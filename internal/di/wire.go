//go:build wireinject
// +build wireinject

package di

import (
	"TriRecover/pkg/config"
	"TriRecover/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvidePostgresClient,
		ProvideRedisCache,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideClickHouseClient,

		// Repositories
		ProvideEntryStore,
		ProvideCache,
		ProvideSettingsStore,
		ProvidePublisher,
		ProvideArchive,

		// Domain and use cases
		ProvideAssessor,
		ProvideFeedHub,
		ProvideBackfillPublisher,
		ProvideAssessmentService,
		ProvideEntryService,
		ProvideCloudSync,
		ProvideSyncService,
		ProvideArchiveService,
		ProvideArchivePipeline,
		ProvideKafkaHandlers,
		ProvideBackfillConsumer,

		// HTTP
		ProvideRateLimiter,
		ProvideHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
