package repository

import (
	"context"

	"github.com/bwight-dev/turtle-trader-sub001/internal/domain/models"
)

// StateStore is the durable home of positions, outcomes, and the account.
// Read on process start, written after each state transition.
type StateStore interface {
	LoadPositions(ctx context.Context) ([]*models.Position, error)
	SavePosition(ctx context.Context, p *models.Position) error
	DeletePosition(ctx context.Context, market string, system models.System) error
	LoadAccount(ctx context.Context) (*models.Account, error)
	SaveAccount(ctx context.Context, a *models.Account) error
	LoadOutcomes(ctx context.Context) ([]models.TradeOutcome, error)
	SaveOutcome(ctx context.Context, o models.TradeOutcome) error
	Health(ctx context.Context) error
	Close() error
}

// AuditSink is the append-only decision log. Write-only from the engine's
// perspective; its schema is a compatibility surface for external auditors.
type AuditSink interface {
	Record(ctx context.Context, ev *models.AuditEvent) error
	Close() error
}

// ExecutionGateway accepts an order intent and reports a fill, a rejection,
// or pending. All retries and timeouts live behind this interface.
type ExecutionGateway interface {
	Submit(ctx context.Context, intent models.OrderIntent) (*models.ExecutionReport, error)
}

// MarketStream is the live price feed for the configured universe.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, markets []string) error
	Ticks(ctx context.Context) (<-chan models.Tick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Metrics records engine observability counters and gauges.
type Metrics interface {
	RecordSignal(market, system, direction string)
	RecordAdmission(verdict string)
	RecordEntry(market, system string)
	RecordPyramid(market, system string)
	RecordExit(market, system, reason string)
	RecordMarketSkip(reason string)
	RecordEquity(equity, multiplier float64)
	RecordOpenUnits(count int)
	RecordCycleLatency(op string, seconds float64)
}
