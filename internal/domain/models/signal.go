package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// System identifies one of the two independent breakout rule sets.
type System string

const (
	SystemS1 System = "S1" // 20-day entry, 10-day exit, filtered by last outcome
	SystemS2 System = "S2" // 55-day entry, 20-day exit, never filtered
)

// Direction of a signal or position.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// Signal is an ephemeral breakout event. It is produced by the channel
// detector and consumed immediately by the admission pipeline; only the
// audit log keeps a durable record of it.
type Signal struct {
	Market       string
	System       System
	Direction    Direction
	TriggerPrice decimal.Decimal
	DetectedAt   time.Time
}
