// Package risk converts signals into concrete unit sizes and stops, and
// throttles sizing through the drawdown-derived notional multiplier. All
// arithmetic is fixed-precision decimal so every number is bit-for-bit
// reproducible from the audit log.
package risk

import (
	"github.com/shopspring/decimal"

	"github.com/bwight-dev/turtle-trader-sub001/internal/domain/models"
)

// SizerConfig carries the risk parameters shared by entry and pyramid
// sizing.
type SizerConfig struct {
	RiskPercent       decimal.Decimal // fraction of notional equity risked per unit, default 0.005
	StopMultiplier    decimal.Decimal // protective stop distance in N, default 2
	PyramidIntervalN  decimal.Decimal // favorable move in N before the next add, default 0.5
	MaxUnitsPerMarket int             // default 4
}

// Sizer implements the sizing formulas. It is stateless: account state
// reaches it only as the pre-throttled notional equity.
type Sizer struct {
	cfg SizerConfig
}

// NewSizer creates a sizer.
func NewSizer(cfg SizerConfig) *Sizer {
	return &Sizer{cfg: cfg}
}

// SizeEntry computes the unit count, protective stop, and risk share for a
// new entry:
//
//	units = floor(notional_equity × risk_percent / (N × point_value))
//	stop  = price − stop_multiplier×N (long), price + stop_multiplier×N (short)
//
// units == 0 is a valid outcome for small accounts on volatile markets; the
// caller rejects it as ZERO_SIZE, distinct from portfolio-limit rejections.
func (s *Sizer) SizeEntry(direction models.Direction, price, n, notionalEquity, pointValue decimal.Decimal) models.Sizing {
	riskDollars := notionalEquity.Mul(s.cfg.RiskPercent)
	dollarVol := n.Mul(pointValue)

	var rawUnits decimal.Decimal
	if dollarVol.IsPositive() {
		rawUnits = riskDollars.Div(dollarVol)
	}
	units := rawUnits.Floor().IntPart() // never round up

	stopDistance := s.cfg.StopMultiplier.Mul(n)
	stop := price.Sub(stopDistance)
	if direction == models.Short {
		stop = price.Add(stopDistance)
	}

	riskPct := decimal.Zero
	if notionalEquity.IsPositive() {
		riskPct = decimal.NewFromInt(units).Mul(dollarVol).Div(notionalEquity)
	}

	return models.Sizing{
		Units:            units,
		Stop:             stop,
		RiskPct:          riskPct,
		NotionalEquity:   notionalEquity,
		RiskDollars:      riskDollars,
		DollarVolatility: dollarVol,
		RawUnits:         rawUnits,
		N:                n,
		Price:            price,
	}
}

// SizePyramid sizes the next unit of an open position, or returns nil when
// no add is due: the price has not yet moved pyramid_interval_n × N (at the
// last entry) in the favorable direction, or the per-market unit cap is
// reached. marketUnits is the unit count across every open position in the
// market, the same count admission checks: the cap binds the market, not the
// position, so a sibling system's units consume it too. The sizing itself
// uses the current price and current N.
func (s *Sizer) SizePyramid(p *models.Position, marketUnits int, price, n, notionalEquity, pointValue decimal.Decimal) *models.Sizing {
	if marketUnits >= s.cfg.MaxUnitsPerMarket {
		return nil
	}
	if !s.PyramidDue(p, price) {
		return nil
	}
	sz := s.SizeEntry(p.Direction, price, n, notionalEquity, pointValue)
	return &sz
}

// PyramidDue reports whether price has reached the next add trigger:
// last_entry ± pyramid_interval_n × N_at_last_entry.
func (s *Sizer) PyramidDue(p *models.Position, price decimal.Decimal) bool {
	last := p.LastUnit()
	interval := s.cfg.PyramidIntervalN.Mul(last.NAtEntry)
	if p.Direction == models.Long {
		return price.GreaterThanOrEqual(last.EntryPrice.Add(interval))
	}
	return price.LessThanOrEqual(last.EntryPrice.Sub(interval))
}

// MaxUnitsPerMarket exposes the configured per-market cap.
func (s *Sizer) MaxUnitsPerMarket() int {
	return s.cfg.MaxUnitsPerMarket
}

// StopMultiplier exposes the configured stop distance in N.
func (s *Sizer) StopMultiplier() decimal.Decimal {
	return s.cfg.StopMultiplier
}
