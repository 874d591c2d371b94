// Package position owns the lifecycle of an open position: entry, pyramid
// adds, stop tightening, exit triggers, and closure into a trade outcome.
package position

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bwight-dev/turtle-trader-sub001/internal/domain/models"
	"github.com/bwight-dev/turtle-trader-sub001/internal/engine/channel"
	"github.com/bwight-dev/turtle-trader-sub001/internal/engine/risk"
)

// Action is what one evaluation cycle decided for a position.
type Action string

const (
	ActionHold    Action = "HOLD"
	ActionPyramid Action = "PYRAMID"
	ActionExit    Action = "EXIT"
)

// Exit reasons carried on evaluations and audit events.
const (
	ExitReasonStop    = "stop"
	ExitReasonChannel = "channel"
)

// Evaluation is the decision for one monitor cycle. Evaluate's only mutation
// is latching EverProfitable, which is monotonic; re-running it with
// unchanged inputs yields the same evaluation and no duplicate actions.
type Evaluation struct {
	Action     Action
	ExitPrice  decimal.Decimal
	ExitReason string
	Sizing     *models.Sizing
}

// Machine is the per-position state machine. It mutates positions only
// through OpenPosition, ApplyPyramid, and Close; the caller confirms fills
// with the execution gateway before invoking any of the mutators.
type Machine struct {
	detector *channel.Detector
	sizer    *risk.Sizer

	// loserToleranceN widens the "stopped at the initial 2N stop" band when
	// classifying outcomes: fills land near the stop, not exactly on it.
	loserToleranceN decimal.Decimal
}

// NewMachine creates a state machine over the shared detector and sizer.
func NewMachine(detector *channel.Detector, sizer *risk.Sizer, loserToleranceN decimal.Decimal) *Machine {
	return &Machine{
		detector:        detector,
		sizer:           sizer,
		loserToleranceN: loserToleranceN,
	}
}

// OpenPosition creates an OPEN position with a single unit from an admitted
// signal and its confirmed fill price.
func (m *Machine) OpenPosition(sig models.Signal, sz models.Sizing, fillPrice decimal.Decimal, at time.Time) *models.Position {
	stop := m.stopFrom(sig.Direction, fillPrice, sz.N)
	return &models.Position{
		Market:    sig.Market,
		System:    sig.System,
		Direction: sig.Direction,
		Units: []models.Unit{{
			EntryPrice: fillPrice,
			EntryDate:  at,
			NAtEntry:   sz.N,
			Size:       sz.Units,
			RiskPct:    sz.RiskPct,
		}},
		CurrentStop: stop,
		InitialStop: stop,
		Status:      models.PositionOpen,
		OpenedAt:    at,
	}
}

// Evaluate runs one monitor cycle for an open position, in fixed priority
// order: exit check, then pyramid check, then hold. Exit evaluation uses the
// intraday price touch; a simultaneous stop and channel breach resolves to
// the stop (the more conservative price). marketUnits is the market-wide
// open unit count gating the pyramid add.
func (m *Machine) Evaluate(p *models.Position, marketUnits int, price, n, notionalEquity, pointValue decimal.Decimal) (Evaluation, error) {
	if p.Status != models.PositionOpen {
		return Evaluation{}, fmt.Errorf("%w: evaluate on %s position %s", models.ErrInconsistentState, p.Status, p.Key())
	}
	if p.CurrentStop.IsZero() {
		return Evaluation{}, fmt.Errorf("%w: position %s has no stop", models.ErrInconsistentState, p.Key())
	}

	if m.profitable(p, price) {
		p.EverProfitable = true
	}

	exitLevel, err := m.detector.ExitLevel(p.Market, p.System, p.Direction)
	if err != nil {
		return Evaluation{}, fmt.Errorf("exit level for %s: %w", p.Key(), err)
	}

	if touched(p.Direction, price, p.CurrentStop) {
		return Evaluation{Action: ActionExit, ExitPrice: p.CurrentStop, ExitReason: ExitReasonStop}, nil
	}
	if touched(p.Direction, price, exitLevel) {
		return Evaluation{Action: ActionExit, ExitPrice: exitLevel, ExitReason: ExitReasonChannel}, nil
	}

	if sz := m.sizer.SizePyramid(p, marketUnits, price, n, notionalEquity, pointValue); sz != nil && sz.Units > 0 {
		return Evaluation{Action: ActionPyramid, Sizing: sz}, nil
	}
	return Evaluation{Action: ActionHold}, nil
}

// ApplyPyramid appends the filled unit and re-derives the position-level
// stop for every unit from the newest entry: fill ∓ stop_multiplier × N at
// the new entry. The unit append and the stop move are one atomic update.
func (m *Machine) ApplyPyramid(p *models.Position, sz models.Sizing, fillPrice decimal.Decimal, at time.Time) {
	unit := models.Unit{
		EntryPrice: fillPrice,
		EntryDate:  at,
		NAtEntry:   sz.N,
		Size:       sz.Units,
		RiskPct:    sz.RiskPct,
	}
	p.Units = append(p.Units, unit)
	p.CurrentStop = m.stopFrom(p.Direction, fillPrice, sz.N)
}

// Close marks the position CLOSED, classifies the outcome, and returns it
// for the ledger. LOSER means the position was stopped out at roughly the
// initial 2N stop without ever having been profitable; anything else is a
// WINNER.
func (m *Machine) Close(p *models.Position, exitPrice decimal.Decimal, at time.Time) models.TradeOutcome {
	p.Status = models.PositionClosed
	p.ClosedAt = at

	first := p.Units[0]
	result := models.Winner
	if !p.EverProfitable && m.atInitialStop(p, exitPrice) {
		result = models.Loser
	}

	var nMultiple decimal.Decimal
	if first.NAtEntry.IsPositive() {
		move := exitPrice.Sub(first.EntryPrice)
		if p.Direction == models.Short {
			move = move.Neg()
		}
		nMultiple = move.Div(first.NAtEntry)
	}

	return models.TradeOutcome{
		Market:     p.Market,
		System:     p.System,
		Direction:  p.Direction,
		EntryPrice: first.EntryPrice,
		ExitPrice:  exitPrice,
		Result:     result,
		NMultiple:  nMultiple,
		ClosedAt:   at,
	}
}

// RealizedPnL computes the closed position's P&L in points × size.
func (m *Machine) RealizedPnL(p *models.Position, exitPrice decimal.Decimal) decimal.Decimal {
	pnl := decimal.Zero
	for _, u := range p.Units {
		move := exitPrice.Sub(u.EntryPrice)
		if p.Direction == models.Short {
			move = move.Neg()
		}
		pnl = pnl.Add(move.Mul(decimal.NewFromInt(u.Size)))
	}
	return pnl
}

func (m *Machine) stopFrom(direction models.Direction, price, n decimal.Decimal) decimal.Decimal {
	distance := m.sizer.StopMultiplier().Mul(n)
	if direction == models.Long {
		return price.Sub(distance)
	}
	return price.Add(distance)
}

// profitable reports whether the price is favorable of the size-weighted
// average entry.
func (m *Machine) profitable(p *models.Position, price decimal.Decimal) bool {
	avg := p.AvgEntryPrice()
	if p.Direction == models.Long {
		return price.GreaterThan(avg)
	}
	return price.LessThan(avg)
}

// atInitialStop reports whether the exit landed within loserToleranceN × N
// of the initial stop, or through it.
func (m *Machine) atInitialStop(p *models.Position, exitPrice decimal.Decimal) bool {
	tolerance := m.loserToleranceN.Mul(p.Units[0].NAtEntry)
	if p.Direction == models.Long {
		return exitPrice.LessThanOrEqual(p.InitialStop.Add(tolerance))
	}
	return exitPrice.GreaterThanOrEqual(p.InitialStop.Sub(tolerance))
}

// touched reports an adverse-side touch of the level: at or below for
// longs, at or above for shorts.
func touched(direction models.Direction, price, level decimal.Decimal) bool {
	if direction == models.Long {
		return price.LessThanOrEqual(level)
	}
	return price.GreaterThanOrEqual(level)
}
