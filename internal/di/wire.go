//go:build wireinject
// +build wireinject

package di

import (
	"CreditRisk/pkg/config"
	"CreditRisk/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideMetrics,
		ProvideRedisCache,
		ProvideMemoryCache,
		ProvideClickHouseClient,

		// Calibration and model
		ProvideCalibrationSource,
		ProvideThresholdStore,
		ProvideModelLoader,
		ProvidePredictor,

		// Repositories
		ProvideBufferedStore,
		ProvidePredictionStore,
		ProvidePredictionPublisher,

		// Use cases
		ProvideLiveFeed,
		ProvideScoringService,
		ProvideReporter,
		ProvideScoreRequestHandler,
		ProvideKafkaConsumer,

		// HTTP
		ProvideRateLimiter,
		ProvideScoringHandler,
		ProvideReportHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
