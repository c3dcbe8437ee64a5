//go:build wireinject
// +build wireinject

package di

import (
	"OptionLens/pkg/config"
	"OptionLens/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideCache,
		ProvideEvalQueue,
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideArchive,
		ProvidePublisher,

		// External data services
		ProvideQuoteSource,
		ProvideRateSource,
		ProvideInterpreter,

		// Quant pipeline
		ProvideExtractor,
		ProvideMatcher,

		// Use cases and handlers
		ProvideAnalyzer,
		ProvideHub,
		ProvideSnapshotArchiver,
		ProvideAnalysisHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
