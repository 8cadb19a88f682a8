//go:build wireinject
// +build wireinject

package di

import (
	"BarView/pkg/config"
	"BarView/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Infrastructure
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideMetrics,
		ProvideSQLiteClient,
		ProvideResponseCache,
		ProvideDownloadLimiter,

		// Repositories
		ProvideBarStore,
		ProvideDrawingStore,
		ProvideEventPublisher,

		// Services and use cases
		ProvideCatalog,
		ProvideBarsUseCase,
		ProvideDrawingsUseCase,
		ProvideHealthUseCase,

		// HTTP
		ProvideBarsHandler,
		ProvideInstrumentsHandler,
		ProvideDrawingsHandler,
		ProvideHealthHandler,
		ProvideRouter,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}
