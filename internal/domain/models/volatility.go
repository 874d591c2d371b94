package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// VolatilityState is one per-market, per-day record of the smoothed
// volatility measure N. Append-only: a day's value is never revised.
type VolatilityState struct {
	Market    string
	Date      time.Time
	N         decimal.Decimal
	TrueRange decimal.Decimal
	Period    int
}
