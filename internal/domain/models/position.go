package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PositionStatus is the lifecycle state of a position.
type PositionStatus string

const (
	PositionOpen   PositionStatus = "OPEN"
	PositionClosed PositionStatus = "CLOSED"
)

// Unit is one sizing increment of a position. Units are append-only; a
// position closes all of its units atomically on exit.
type Unit struct {
	EntryPrice decimal.Decimal `json:"entry_price"`
	EntryDate  time.Time       `json:"entry_date"`
	NAtEntry   decimal.Decimal `json:"n_at_entry"`
	Size       int64           `json:"size"`
	RiskPct    decimal.Decimal `json:"risk_pct"`
}

// Position is the aggregate root owned by the position state machine. The
// protective stop is a single position-level value covering every unit;
// units never carry independent stops.
type Position struct {
	Market         string          `json:"market"`
	System         System          `json:"system"`
	Direction      Direction       `json:"direction"`
	Units          []Unit          `json:"units"`
	CurrentStop    decimal.Decimal `json:"current_stop"`
	InitialStop    decimal.Decimal `json:"initial_stop"`
	EverProfitable bool            `json:"ever_profitable"`
	Status         PositionStatus  `json:"status"`
	OpenedAt       time.Time       `json:"opened_at"`
	ClosedAt       time.Time       `json:"closed_at,omitempty"`
}

// PositionKey is the serialization key for the one open position slot per
// (market, system).
func PositionKey(market string, system System) string {
	return fmt.Sprintf("%s|%s", market, system)
}

// Key returns the position's (market, system) slot key.
func (p *Position) Key() string {
	return PositionKey(p.Market, p.System)
}

// TotalSize is the summed size of all units.
func (p *Position) TotalSize() int64 {
	var total int64
	for _, u := range p.Units {
		total += u.Size
	}
	return total
}

// TotalRiskPct is the summed admission-time risk of all units.
func (p *Position) TotalRiskPct() decimal.Decimal {
	total := decimal.Zero
	for _, u := range p.Units {
		total = total.Add(u.RiskPct)
	}
	return total
}

// AvgEntryPrice is the size-weighted average entry across units.
func (p *Position) AvgEntryPrice() decimal.Decimal {
	if len(p.Units) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	var size int64
	for _, u := range p.Units {
		sum = sum.Add(u.EntryPrice.Mul(decimal.NewFromInt(u.Size)))
		size += u.Size
	}
	if size == 0 {
		return decimal.Zero
	}
	return sum.Div(decimal.NewFromInt(size))
}

// LastUnit returns the most recently added unit.
func (p *Position) LastUnit() Unit {
	return p.Units[len(p.Units)-1]
}
