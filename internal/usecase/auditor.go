package usecase

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bwight-dev/turtle-trader-sub001/internal/domain/models"
	"github.com/bwight-dev/turtle-trader-sub001/internal/domain/repository"
	"github.com/bwight-dev/turtle-trader-sub001/pkg/logger"
)

// Auditor stamps every decision event with the run identifier and a
// monotonically increasing per-run sequence, then hands it to the sink.
// Audit failures are logged, never allowed to stall a trading cycle.
type Auditor struct {
	sink  repository.AuditSink
	log   *logger.Logger
	runID string
	seq   atomic.Uint64
}

// NewAuditor creates an auditor with a fresh run ID.
func NewAuditor(sink repository.AuditSink, log *logger.Logger) *Auditor {
	return &Auditor{
		sink:  sink,
		log:   log,
		runID: uuid.NewString(),
	}
}

// RunID returns this run's identifier.
func (a *Auditor) RunID() string {
	return a.runID
}

// Emit records one audit event.
func (a *Auditor) Emit(ctx context.Context, kind string, sig models.Signal, reason string, detail map[string]string) {
	ev := &models.AuditEvent{
		RunID:     a.runID,
		Seq:       a.seq.Add(1),
		Time:      time.Now().UTC(),
		Kind:      kind,
		Market:    sig.Market,
		System:    string(sig.System),
		Direction: string(sig.Direction),
		Reason:    reason,
		Detail:    detail,
	}
	if err := a.sink.Record(ctx, ev); err != nil {
		a.log.Warn("audit record failed",
			logger.String("kind", kind),
			logger.String("market", ev.Market),
			logger.Error(err))
	}
}

// sizingDetail flattens a sizing into audit fields. Every input and
// intermediate appears, so an auditor can recompute units and stop from the
// public formulas alone.
func sizingDetail(sz *models.Sizing) map[string]string {
	if sz == nil {
		return nil
	}
	return map[string]string{
		"price":             sz.Price.String(),
		"n":                 sz.N.String(),
		"notional_equity":   sz.NotionalEquity.String(),
		"risk_dollars":      sz.RiskDollars.String(),
		"dollar_volatility": sz.DollarVolatility.String(),
		"raw_units":         sz.RawUnits.String(),
		"units":             decimal.NewFromInt(sz.Units).String(),
		"stop":              sz.Stop.String(),
		"risk_pct":          sz.RiskPct.String(),
	}
}

func mergeDetail(base map[string]string, extra map[string]string) map[string]string {
	if base == nil {
		return extra
	}
	for k, v := range extra {
		base[k] = v
	}
	return base
}
