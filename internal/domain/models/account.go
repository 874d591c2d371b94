package models

import "github.com/shopspring/decimal"

// DrawdownState is recomputed every cycle from actual equity against the
// high-water mark. The notional multiplier is the only channel through
// which drawdown reaches position sizing.
type DrawdownState struct {
	DrawdownPct        decimal.Decimal `json:"drawdown_pct"`
	NotionalMultiplier decimal.Decimal `json:"notional_multiplier"`
}

// Account is the externally reported equity plus the derived drawdown state.
// The high-water mark is monotonically non-decreasing except on an explicit
// reset (capital withdrawal or deposit).
type Account struct {
	EquityActual    decimal.Decimal `json:"equity_actual"`
	EquityHighWater decimal.Decimal `json:"equity_high_water"`
	Drawdown        DrawdownState   `json:"drawdown"`
}

// NotionalEquity is the equity actually used for sizing.
func (a *Account) NotionalEquity() decimal.Decimal {
	return a.EquityActual.Mul(a.Drawdown.NotionalMultiplier)
}
