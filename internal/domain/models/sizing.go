package models

import "github.com/shopspring/decimal"

// Sizing is the output of the risk sizer. The intermediate values are kept
// so the audit log can carry every number needed to recompute Units and
// Stop from the public formulas.
type Sizing struct {
	Units            int64           `json:"units"`
	Stop             decimal.Decimal `json:"stop"`
	RiskPct          decimal.Decimal `json:"risk_pct"`
	NotionalEquity   decimal.Decimal `json:"notional_equity"`
	RiskDollars      decimal.Decimal `json:"risk_dollars"`
	DollarVolatility decimal.Decimal `json:"dollar_volatility"`
	RawUnits         decimal.Decimal `json:"raw_units"`
	N                decimal.Decimal `json:"n"`
	Price            decimal.Decimal `json:"price"`
}

// RejectReason codes every way the admission pipeline can turn a signal
// away. Rejections are expected outcomes, not errors.
type RejectReason string

const (
	RejectNone         RejectReason = ""
	RejectDuplicate    RejectReason = "DUPLICATE_POSITION"
	RejectFilteredS1   RejectReason = "FILTERED_S1"
	RejectMarketUnits  RejectReason = "LIMIT_MARKET_UNITS"
	RejectGroupUnits   RejectReason = "LIMIT_GROUP_UNITS"
	RejectTotalUnits   RejectReason = "LIMIT_TOTAL_UNITS"
	RejectRiskCap      RejectReason = "LIMIT_RISK_CAP"
	RejectZeroSize     RejectReason = "ZERO_SIZE"
)

// Verdict is the admission pipeline's decision for one signal.
type Verdict struct {
	Admitted bool
	Reason   RejectReason
	Sizing   *Sizing
}
