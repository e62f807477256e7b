//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"CryptoVision/pkg/config"
	"CryptoVision/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application
// together with a cleanup that closes the infrastructure clients.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvidePrometheusRegistry,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideRedisClient,

		// Repositories
		ProvideDatasetSource,
		ProvideEvaluationStore,
		ProvidePredictionPublisher,
		ProvideRateLimiter,

		// Use cases
		ProvideRegressor,
		ProvideTrainer,
		ProvideRegistry,
		ProvidePredictor,

		// Transport
		ProvidePredictHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil, nil
}
