package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bwight-dev/turtle-trader-sub001/internal/domain/models"
	"github.com/bwight-dev/turtle-trader-sub001/internal/domain/repository"
	"github.com/bwight-dev/turtle-trader-sub001/internal/engine/ledger"
	"github.com/bwight-dev/turtle-trader-sub001/internal/engine/position"
	"github.com/bwight-dev/turtle-trader-sub001/internal/engine/volatility"
	"github.com/bwight-dev/turtle-trader-sub001/pkg/logger"
)

// Monitor runs the intraday open-position cycle: for every open position,
// check stop and channel exits, then pyramid triggers, and carry out
// whatever the evaluation decided through the execution gateway.
type Monitor struct {
	tracker  *volatility.Tracker
	machine  *position.Machine
	registry *Registry
	accounts *AccountManager
	outcomes *ledger.Ledger
	store    repository.StateStore
	gateway  repository.ExecutionGateway
	auditor  *Auditor
	metrics  repository.Metrics
	log      *logger.Logger
	markets  map[string]MarketSpec
}

// NewMonitor wires the monitor cycle.
func NewMonitor(
	tracker *volatility.Tracker,
	machine *position.Machine,
	registry *Registry,
	accounts *AccountManager,
	outcomes *ledger.Ledger,
	store repository.StateStore,
	gateway repository.ExecutionGateway,
	auditor *Auditor,
	metrics repository.Metrics,
	log *logger.Logger,
	markets map[string]MarketSpec,
) *Monitor {
	return &Monitor{
		tracker:  tracker,
		machine:  machine,
		registry: registry,
		accounts: accounts,
		outcomes: outcomes,
		store:    store,
		gateway:  gateway,
		auditor:  auditor,
		metrics:  metrics,
		log:      log,
		markets:  markets,
	}
}

// Run evaluates every open position against the given last prices. Markets
// evaluate in parallel under per-market locks, so when a market carries both
// an S1 and an S2 position they evaluate sequentially and the pyramid cap
// sees the combined unit count. A market with no price this cycle is skipped
// and its position left untouched.
func (m *Monitor) Run(ctx context.Context, prices map[string]decimal.Decimal) {
	started := time.Now()
	defer func() {
		m.metrics.RecordCycleLatency("monitor", time.Since(started).Seconds())
	}()

	if !m.accounts.Ready() {
		m.log.Warn("monitor cycle skipped: no equity snapshot")
		return
	}
	snapshot := m.accounts.Snapshot()
	notional := snapshot.NotionalEquity()

	var wg sync.WaitGroup
	for _, p := range m.registry.Open() {
		price, ok := prices[p.Market]
		if !ok {
			m.metrics.RecordMarketSkip("no_price")
			continue
		}
		wg.Add(1)
		go func(p *models.Position, price decimal.Decimal) {
			defer wg.Done()
			unlock := m.registry.LockKey(p.Market)
			defer unlock()
			m.evaluate(ctx, p, price, notional)
		}(p, price)
	}
	wg.Wait()
	m.metrics.RecordOpenUnits(m.registry.TotalUnits())
}

func (m *Monitor) evaluate(ctx context.Context, p *models.Position, price, notional decimal.Decimal) {
	// Re-check the slot: the position may have closed while this goroutine
	// waited on the lock.
	current, ok := m.registry.Get(p.Market, p.System)
	if !ok || current != p {
		return
	}

	spec := m.markets[p.Market]
	n, err := m.tracker.N(p.Market)
	if err != nil {
		m.log.Warn("no volatility for open position",
			logger.String("key", p.Key()), logger.Error(err))
		return
	}

	ev, err := m.machine.Evaluate(p, m.registry.MarketUnits(p.Market), price, n, notional, spec.PointValue)
	if err != nil {
		m.log.Error("position evaluation failed",
			logger.String("key", p.Key()), logger.Error(err))
		return
	}

	switch ev.Action {
	case position.ActionExit:
		m.exit(ctx, p, ev)
	case position.ActionPyramid:
		m.pyramid(ctx, p, ev)
	}
}

func (m *Monitor) exit(ctx context.Context, p *models.Position, ev position.Evaluation) {
	sig := models.Signal{Market: p.Market, System: p.System, Direction: p.Direction}
	intent := models.OrderIntent{
		Market:    p.Market,
		System:    p.System,
		Direction: p.Direction,
		Kind:      models.IntentExit,
		Units:     p.TotalSize(),
		OrderType: models.OrderMarket,
	}
	report, err := m.gateway.Submit(ctx, intent)
	if err != nil || report.Status != models.ExecFilled {
		// The position stays open; the next cycle re-evaluates the same exit.
		m.auditor.Emit(ctx, models.AuditExecFail, sig, execFailReason(report, err), nil)
		m.log.Error("exit order not filled", logger.String("key", p.Key()), logger.Error(err))
		return
	}

	outcome := m.machine.Close(p, report.Price, report.Time)
	pnl := m.machine.RealizedPnL(p, report.Price)
	m.registry.Remove(p.Market, p.System)
	m.outcomes.Record(outcome)

	if err := m.store.SaveOutcome(ctx, outcome); err != nil {
		m.log.Error("outcome persist failed", logger.String("key", p.Key()), logger.Error(err))
	}
	if err := m.store.DeletePosition(ctx, p.Market, p.System); err != nil {
		m.log.Error("position delete failed", logger.String("key", p.Key()), logger.Error(err))
	}

	m.metrics.RecordExit(p.Market, string(p.System), ev.ExitReason)
	m.auditor.Emit(ctx, models.AuditExit, sig, ev.ExitReason, map[string]string{
		"exit_level": ev.ExitPrice.String(),
		"fill_price": report.Price.String(),
		"units":      decimal.NewFromInt(p.TotalSize()).String(),
		"pnl_points": pnl.String(),
	})
	m.auditor.Emit(ctx, models.AuditOutcome, sig, string(outcome.Result), map[string]string{
		"entry_price": outcome.EntryPrice.String(),
		"exit_price":  outcome.ExitPrice.String(),
		"n_multiple":  outcome.NMultiple.StringFixed(4),
	})
	m.log.Info("position closed",
		logger.String("key", p.Key()),
		logger.String("reason", ev.ExitReason),
		logger.String("result", string(outcome.Result)),
		logger.Decimal("fill", report.Price),
		logger.Decimal("pnl_points", pnl))
}

func (m *Monitor) pyramid(ctx context.Context, p *models.Position, ev position.Evaluation) {
	sig := models.Signal{Market: p.Market, System: p.System, Direction: p.Direction}
	intent := models.OrderIntent{
		Market:    p.Market,
		System:    p.System,
		Direction: p.Direction,
		Kind:      models.IntentPyramid,
		Units:     ev.Sizing.Units,
		OrderType: models.OrderMarket,
	}
	report, err := m.gateway.Submit(ctx, intent)
	if err != nil || report.Status != models.ExecFilled {
		m.auditor.Emit(ctx, models.AuditExecFail, sig, execFailReason(report, err), nil)
		m.log.Warn("pyramid order not filled", logger.String("key", p.Key()), logger.Error(err))
		return
	}

	previousStop := p.CurrentStop
	m.machine.ApplyPyramid(p, *ev.Sizing, report.Price, report.Time)
	if err := m.store.SavePosition(ctx, p); err != nil {
		m.log.Error("position persist failed", logger.String("key", p.Key()), logger.Error(err))
	}

	m.metrics.RecordPyramid(p.Market, string(p.System))
	m.auditor.Emit(ctx, models.AuditPyramid, sig, "", mergeDetail(sizingDetail(ev.Sizing), map[string]string{
		"fill_price": report.Price.String(),
		"unit_count": decimal.NewFromInt(int64(len(p.Units))).String(),
	}))
	m.auditor.Emit(ctx, models.AuditStopMove, sig, "", map[string]string{
		"from": previousStop.String(),
		"to":   p.CurrentStop.String(),
	})
	m.log.Info("pyramid unit added",
		logger.String("key", p.Key()),
		logger.Int64("units", ev.Sizing.Units),
		logger.Decimal("fill", report.Price),
		logger.Decimal("stop", p.CurrentStop))
}

func execFailReason(report *models.ExecutionReport, err error) string {
	if err != nil {
		return err.Error()
	}
	if report.Reason != "" {
		return string(report.Status) + ": " + report.Reason
	}
	return string(report.Status)
}
