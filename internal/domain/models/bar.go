package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar is one finalized daily OHLCV row for a market. Bars arrive in
// chronological order per market; gaps are tolerated, never filled.
type Bar struct {
	Market string
	Date   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume decimal.Decimal
}

// Tick is a single intraday price observation used by the position monitor.
type Tick struct {
	Market string
	Price  decimal.Decimal
	Time   time.Time
}

// Channel is the high/low of a trailing window of completed bars. Derived,
// never stored.
type Channel struct {
	High decimal.Decimal
	Low  decimal.Decimal
}
