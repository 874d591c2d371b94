// Package channel computes rolling Donchian high/low channels and emits
// breakout signals for the two rule systems.
package channel

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bwight-dev/turtle-trader-sub001/internal/domain/models"
)

// Channel windows in trading days. Entries break the 20-day (S1) or 55-day
// (S2) channel; exits use the 10-day (S1) or 20-day (S2) opposite side.
const (
	WindowExitS1  = 10
	WindowEntryS1 = 20
	WindowExitS2  = 20
	WindowEntryS2 = 55
)

// Result holds the independent per-system signals for one evaluation. Both
// may fire on the same bar; the admission pipeline arbitrates.
type Result struct {
	S1 *models.Signal
	S2 *models.Signal
}

// Detector keeps completed daily bars per market and answers channel and
// signal queries. The current (forming) bar is never part of a channel: the
// caller detects against yesterday's windows, then appends today's bar.
type Detector struct {
	mu        sync.RWMutex
	histories map[string][]models.Bar
	capacity  int
}

// NewDetector creates a detector retaining just enough history for the
// widest window.
func NewDetector() *Detector {
	return &Detector{
		histories: make(map[string][]models.Bar),
		capacity:  WindowEntryS2 + 1,
	}
}

// Append adds a completed bar to the market's history.
func (d *Detector) Append(bar models.Bar) {
	d.mu.Lock()
	defer d.mu.Unlock()

	h := append(d.histories[bar.Market], bar)
	if len(h) > d.capacity {
		h = h[len(h)-d.capacity:]
	}
	d.histories[bar.Market] = h
}

// Channel returns the high/low over the trailing `window` completed bars,
// or ErrInsufficientHistory if fewer bars exist.
func (d *Detector) Channel(market string, window int) (models.Channel, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.channelLocked(market, window)
}

func (d *Detector) channelLocked(market string, window int) (models.Channel, error) {
	h := d.histories[market]
	if len(h) < window {
		return models.Channel{}, fmt.Errorf("%w: %d-day channel for %s has %d bars",
			models.ErrInsufficientHistory, window, market, len(h))
	}
	tail := h[len(h)-window:]
	ch := models.Channel{High: tail[0].High, Low: tail[0].Low}
	for _, b := range tail[1:] {
		if b.High.GreaterThan(ch.High) {
			ch.High = b.High
		}
		if b.Low.LessThan(ch.Low) {
			ch.Low = b.Low
		}
	}
	return ch, nil
}

// Detect evaluates both systems against a closing price: the close-entry
// convention. A system whose window is not yet filled simply stays quiet;
// Detect only errors when not even the S1 window exists.
func (d *Detector) Detect(market string, price decimal.Decimal, at time.Time) (Result, error) {
	return d.detect(market, price, price, at)
}

// DetectRange evaluates both systems against the day's traded range: the
// intraday-touch entry convention, where a high through the upper channel or
// a low through the lower channel fires even if the close pulled back
// inside. When both sides broke in one day the upside breakout wins.
func (d *Detector) DetectRange(market string, high, low decimal.Decimal, at time.Time) (Result, error) {
	return d.detect(market, high, low, at)
}

func (d *Detector) detect(market string, up, down decimal.Decimal, at time.Time) (Result, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var res Result
	c20, err := d.channelLocked(market, WindowEntryS1)
	if err != nil {
		return res, err
	}
	res.S1 = breakout(market, models.SystemS1, c20, up, down, at)

	if c55, err := d.channelLocked(market, WindowEntryS2); err == nil {
		res.S2 = breakout(market, models.SystemS2, c55, up, down, at)
	}
	return res, nil
}

// ExitLevel returns the opposite-side channel boundary a position exits at:
// the 10-day for S1, the 20-day for S2. Longs exit at the window low,
// shorts at the window high.
func (d *Detector) ExitLevel(market string, system models.System, direction models.Direction) (decimal.Decimal, error) {
	window := WindowExitS1
	if system == models.SystemS2 {
		window = WindowExitS2
	}
	ch, err := d.Channel(market, window)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if direction == models.Long {
		return ch.Low, nil
	}
	return ch.High, nil
}

func breakout(market string, system models.System, ch models.Channel, up, down decimal.Decimal, at time.Time) *models.Signal {
	switch {
	case up.GreaterThan(ch.High):
		return &models.Signal{
			Market:       market,
			System:       system,
			Direction:    models.Long,
			TriggerPrice: ch.High,
			DetectedAt:   at,
		}
	case down.LessThan(ch.Low):
		return &models.Signal{
			Market:       market,
			System:       system,
			Direction:    models.Short,
			TriggerPrice: ch.Low,
			DetectedAt:   at,
		}
	default:
		return nil
	}
}
