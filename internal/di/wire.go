//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/bwight-dev/turtle-trader-sub001/pkg/config"
	"github.com/bwight-dev/turtle-trader-sub001/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure
		ProvideStateStore,
		ProvideAuditSink,
		ProvideMarketStream,
		ProvideHistory,
		ProvideBook,
		ProvideExecutionGateway,

		// Engine components
		ProvideTracker,
		ProvideDetector,
		ProvideLedger,
		ProvideSizer,
		ProvideDrawdownController,
		ProvidePipeline,
		ProvideMachine,
		ProvideMarketSpecs,

		// Use cases
		ProvideAccountManager,
		ProvideRegistry,
		ProvideAuditor,
		ProvideScan,
		ProvideMonitor,

		// Application
		ProvideApp,
	)
	return &server.App{}, nil
}
