// Package admission gates detected signals through the fixed filter chain:
// duplicate position, S1 last-winner filter, per-market unit cap,
// correlation-group cap, total exposure cap, zero-size floor. The first
// failing filter is recorded so every rejection is auditable.
package admission

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/bwight-dev/turtle-trader-sub001/internal/domain/models"
	"github.com/bwight-dev/turtle-trader-sub001/internal/engine/ledger"
	"github.com/bwight-dev/turtle-trader-sub001/internal/engine/risk"
)

// LimitMode selects how the total exposure cap is expressed.
type LimitMode string

const (
	LimitUnitCount LimitMode = "UNIT_COUNT"
	LimitRiskCap   LimitMode = "RISK_CAP"
)

// Config carries the admission caps.
type Config struct {
	MaxUnitsPerMarket int
	MaxUnitsPerGroup  int
	Mode              LimitMode
	MaxUnitsTotal     int
	MaxTotalRiskPct   decimal.Decimal
	Groups            map[string]string // market -> correlation group
}

// Pipeline runs the admission checks. Admit holds an internal lock for the
// whole check-and-size sequence, so two concurrent signals cannot both pass
// a cap there is only room for one under.
type Pipeline struct {
	mu     sync.Mutex
	ledger *ledger.Ledger
	sizer  *risk.Sizer
	cfg    Config
}

// NewPipeline creates the admission pipeline.
func NewPipeline(l *ledger.Ledger, s *risk.Sizer, cfg Config) *Pipeline {
	return &Pipeline{ledger: l, sizer: s, cfg: cfg}
}

// Admit evaluates the filters in fixed order, short-circuiting on the first
// failure. open is the current snapshot of open positions; price and n are
// the signal market's entry price and volatility; notionalEquity is the
// drawdown-throttled equity.
//
// S2 signals skip the ledger filter entirely: the failsafe interaction is
// nothing more than S2 never consulting the ledger.
func (p *Pipeline) Admit(sig models.Signal, open []*models.Position, price, n, notionalEquity, pointValue decimal.Decimal) models.Verdict {
	p.mu.Lock()
	defer p.mu.Unlock()

	// 1. Already in position for this (market, system).
	for _, pos := range open {
		if pos.Status == models.PositionOpen && pos.Market == sig.Market && pos.System == sig.System {
			return models.Verdict{Reason: models.RejectDuplicate}
		}
	}

	// 2. S1 filter: a prior S1 winner on this market suppresses the entry.
	if sig.System == models.SystemS1 {
		if out, ok := p.ledger.LastOutcome(sig.Market, models.SystemS1); ok && out.Result == models.Winner {
			return models.Verdict{Reason: models.RejectFilteredS1}
		}
	}

	ex := ComputeExposure(open, p.cfg.Groups)

	// 3. Per-market unit cap.
	if ex.UnitsByMarket[sig.Market] >= p.cfg.MaxUnitsPerMarket {
		return models.Verdict{Reason: models.RejectMarketUnits}
	}

	// 4. Correlated-group cap.
	if g, ok := p.cfg.Groups[sig.Market]; ok {
		if ex.UnitsByGroup[g] >= p.cfg.MaxUnitsPerGroup {
			return models.Verdict{Reason: models.RejectGroupUnits}
		}
	}

	sz := p.sizer.SizeEntry(sig.Direction, price, n, notionalEquity, pointValue)

	// 5. Total exposure cap, in the configured mode.
	switch p.cfg.Mode {
	case LimitRiskCap:
		if ex.TotalRiskPct.Add(sz.RiskPct).GreaterThan(p.cfg.MaxTotalRiskPct) {
			return models.Verdict{Reason: models.RejectRiskCap, Sizing: &sz}
		}
	default:
		if ex.TotalUnits >= p.cfg.MaxUnitsTotal {
			return models.Verdict{Reason: models.RejectTotalUnits}
		}
	}

	// 6. Sizing floor: no partial units.
	if sz.Units == 0 {
		return models.Verdict{Reason: models.RejectZeroSize, Sizing: &sz}
	}

	return models.Verdict{Admitted: true, Sizing: &sz}
}
