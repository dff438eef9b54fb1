//go:build wireinject
// +build wireinject

package di

import (
	"AlphaScout/pkg/config"
	"AlphaScout/pkg/server"

	"github.com/google/wire"
)

// InitializePersister wires up the persistence consumer process. Wire
// generates the implementation.
func InitializePersister(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvidePostgresClient,
		ProvideAMQPConsumer,

		// Repositories and use cases
		ProvideSignalStore,
		ProvideSignalPersister,
		ProvideSignalHistory,

		// HTTP surface
		ProvideAPIHandler,
		ProvideHTTPServer,

		ProvidePersisterApp,
	)
	return &server.App{}, nil
}
