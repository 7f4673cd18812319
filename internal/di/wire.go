//go:build wireinject
// +build wireinject

package di

import (
	"chartfeed/pkg/config"
	"chartfeed/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideChunkSource,
		ProvideCacheStore,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Services and repositories
		ProvideChunkCache,
		ProvideChunkEventPublisher,
		ProvideRateLimiter,

		// Use cases
		ProvideCandlesticksUseCase,
		ProvideLiveInvalidator,

		// Application server
		ProvideHTTPServer,
		ProvideApp,
	)
	return &server.App{}, nil
}
