package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeResult classifies a closed trade. A trade is a LOSER only when it was
// stopped out near the initial 2N stop without ever reaching profitability;
// every other exit is a WINNER.
type TradeResult string

const (
	Winner TradeResult = "WINNER"
	Loser  TradeResult = "LOSER"
)

// TradeOutcome is created when a position closes. Only the most recent S1
// outcome per market is ever consulted, to drive the S1 entry filter.
type TradeOutcome struct {
	Market     string          `json:"market"`
	System     System          `json:"system"`
	Direction  Direction       `json:"direction"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	ExitPrice  decimal.Decimal `json:"exit_price"`
	Result     TradeResult     `json:"result"`
	NMultiple  decimal.Decimal `json:"n_multiple"`
	ClosedAt   time.Time       `json:"closed_at"`
}
