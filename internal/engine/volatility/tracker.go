// Package volatility maintains the smoothed True Range measure (N) that the
// whole engine prices risk in. One state per market, appended to once per
// trading day, never revised.
package volatility

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/bwight-dev/turtle-trader-sub001/internal/domain/models"
)

// DefaultPeriod is the Wilder smoothing period for N.
const DefaultPeriod = 20

// Tracker computes True Range and Wilder-smoothed N per market from the
// daily bar stream. Safe for concurrent use across markets.
type Tracker struct {
	mu     sync.RWMutex
	period int
	states map[string]*marketState
}

type marketState struct {
	n         decimal.Decimal
	prevClose decimal.Decimal
	hasPrev   bool
	seedSum   decimal.Decimal
	count     int
	last      models.VolatilityState
}

// NewTracker creates a tracker with the given smoothing period; period <= 0
// falls back to DefaultPeriod.
func NewTracker(period int) *Tracker {
	if period <= 0 {
		period = DefaultPeriod
	}
	return &Tracker{
		period: period,
		states: make(map[string]*marketState),
	}
}

// Update appends one daily bar and returns the market's volatility state for
// that day. The seed N after the first `period` bars is a simple average of
// true ranges; afterwards N_t = ((period-1)*N_{t-1} + TR_t) / period.
func (t *Tracker) Update(bar models.Bar) (models.VolatilityState, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.states[bar.Market]
	if !ok {
		st = &marketState{}
		t.states[bar.Market] = st
	}
	if st.count > 0 && !bar.Date.After(st.last.Date) {
		return models.VolatilityState{}, fmt.Errorf("%w: bar for %s on %s is not after %s",
			models.ErrInconsistentState, bar.Market, bar.Date.Format("2006-01-02"), st.last.Date.Format("2006-01-02"))
	}

	tr := trueRange(bar, st.prevClose, st.hasPrev)
	if tr.IsNegative() {
		return models.VolatilityState{}, fmt.Errorf("%w: negative true range for %s", models.ErrInvariantViolation, bar.Market)
	}

	st.count++
	period := decimal.NewFromInt(int64(t.period))
	switch {
	case st.count < t.period:
		st.seedSum = st.seedSum.Add(tr)
	case st.count == t.period:
		st.seedSum = st.seedSum.Add(tr)
		st.n = st.seedSum.Div(period)
	default:
		st.n = st.n.Mul(period.Sub(decimal.NewFromInt(1))).Add(tr).Div(period)
	}
	if st.count >= t.period && st.n.IsNegative() {
		return models.VolatilityState{}, fmt.Errorf("%w: negative N for %s", models.ErrInvariantViolation, bar.Market)
	}

	st.prevClose = bar.Close
	st.hasPrev = true
	st.last = models.VolatilityState{
		Market:    bar.Market,
		Date:      bar.Date,
		N:         st.n,
		TrueRange: tr,
		Period:    t.period,
	}
	return st.last, nil
}

// N returns the current smoothed volatility for a market, or
// ErrInsufficientHistory until the warm-up window is filled.
func (t *Tracker) N(market string) (decimal.Decimal, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	st, ok := t.states[market]
	if !ok || st.count < t.period {
		return decimal.Decimal{}, fmt.Errorf("%w: N for %s needs %d bars", models.ErrInsufficientHistory, market, t.period)
	}
	return st.n, nil
}

// Ready reports whether the market has enough bars for N.
func (t *Tracker) Ready(market string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	st, ok := t.states[market]
	return ok && st.count >= t.period
}

// State returns the latest volatility state for a market.
func (t *Tracker) State(market string) (models.VolatilityState, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	st, ok := t.states[market]
	if !ok || st.count == 0 {
		return models.VolatilityState{}, fmt.Errorf("%w: no bars for %s", models.ErrInsufficientHistory, market)
	}
	return st.last, nil
}

// trueRange is max(high-low, |high-prevClose|, |prevClose-low|); on the
// first bar only high-low is available.
func trueRange(bar models.Bar, prevClose decimal.Decimal, hasPrev bool) decimal.Decimal {
	hl := bar.High.Sub(bar.Low)
	if !hasPrev {
		return hl
	}
	hc := bar.High.Sub(prevClose).Abs()
	cl := prevClose.Sub(bar.Low).Abs()
	tr := hl
	if hc.GreaterThan(tr) {
		tr = hc
	}
	if cl.GreaterThan(tr) {
		tr = cl
	}
	return tr
}
