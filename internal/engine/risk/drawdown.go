package risk

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/bwight-dev/turtle-trader-sub001/internal/domain/models"
)

// DrawdownController tracks the equity high-water mark and derives the
// notional multiplier the sizer works from. The multiplier is the sole
// channel through which drawdown throttles sizing.
type DrawdownController struct {
	mu        sync.Mutex
	highWater decimal.Decimal
	threshold decimal.Decimal
	reduction decimal.Decimal
	floor     decimal.Decimal
}

// NewDrawdownController creates a controller. A zero floor leaves the
// reduction unbounded; a floor such as 0.60 prevents runaway throttling.
func NewDrawdownController(threshold, reduction, floor decimal.Decimal) *DrawdownController {
	return &DrawdownController{
		threshold: threshold,
		reduction: reduction,
		floor:     floor,
	}
}

// Update folds one equity report into the high-water mark and returns the
// drawdown state for the cycle. Non-positive equity is treated as upstream
// corruption, not a market move.
func (c *DrawdownController) Update(equityActual decimal.Decimal) (models.DrawdownState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !equityActual.IsPositive() {
		return models.DrawdownState{}, fmt.Errorf("%w: equity %s", models.ErrInvariantViolation, equityActual)
	}
	if equityActual.GreaterThan(c.highWater) {
		c.highWater = equityActual
	}

	ddPct := c.highWater.Sub(equityActual).Div(c.highWater)
	mult := decimal.NewFromInt(1)
	if ddPct.GreaterThanOrEqual(c.threshold) {
		mult = decimal.NewFromInt(1).Sub(c.reduction)
		if mult.LessThan(c.floor) {
			mult = c.floor
		}
	}
	return models.DrawdownState{DrawdownPct: ddPct, NotionalMultiplier: mult}, nil
}

// Reset re-anchors the high-water mark after an external capital event
// (withdrawal or deposit). This is the only path that lets it decrease.
func (c *DrawdownController) Reset(equity decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.highWater = equity
}

// HighWater returns the current high-water mark.
func (c *DrawdownController) HighWater() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.highWater
}
