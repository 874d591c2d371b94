package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderType for an execution intent.
type OrderType string

const (
	OrderMarket OrderType = "MARKET"
	OrderLimit  OrderType = "LIMIT"
)

// IntentKind distinguishes what the engine is trying to do with an order.
type IntentKind string

const (
	IntentEntry   IntentKind = "ENTRY"
	IntentPyramid IntentKind = "PYRAMID"
	IntentExit    IntentKind = "EXIT"
)

// OrderIntent is the engine's desired action. The execution gateway performs
// it out of band; the engine's position is only finalized once a fill comes
// back.
type OrderIntent struct {
	Market     string          `json:"market"`
	System     System          `json:"system"`
	Direction  Direction       `json:"direction"`
	Kind       IntentKind      `json:"kind"`
	Units      int64           `json:"units"`
	OrderType  OrderType       `json:"order_type"`
	LimitPrice decimal.Decimal `json:"limit_price,omitempty"`
}

// ExecutionStatus of a submitted intent.
type ExecutionStatus string

const (
	ExecFilled   ExecutionStatus = "FILLED"
	ExecRejected ExecutionStatus = "REJECTED"
	ExecPending  ExecutionStatus = "PENDING"
)

// ExecutionReport is the gateway's answer to an intent.
type ExecutionReport struct {
	Status ExecutionStatus `json:"status"`
	Price  decimal.Decimal `json:"price,omitempty"`
	Time   time.Time       `json:"time,omitempty"`
	Reason string          `json:"reason,omitempty"`
}
