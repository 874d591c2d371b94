// Package middleware sits between the market data stream and the engine.
package middleware

import (
	"fmt"

	"github.com/bwight-dev/turtle-trader-sub001/internal/domain/models"
	domrepo "github.com/bwight-dev/turtle-trader-sub001/internal/domain/repository"
	"github.com/bwight-dev/turtle-trader-sub001/internal/service/ratelimit"
)

// Applier consumes validated ticks. The price book satisfies this.
type Applier interface {
	Apply(tick models.Tick)
}

// TickPipeline validates and throttles the raw feed before it reaches the
// book. The engine reads daily closes and periodic last prices, so per-market
// tick rate above maxPerSec carries no information and only burns CPU.
type TickPipeline struct {
	applier   Applier
	metrics   domrepo.Metrics
	limiter   *ratelimit.Limiter
	maxPerSec float64
	burst     float64
}

type PipelineOption func(*TickPipeline)

// WithMaxTicksPerSec caps the accepted tick rate per market. Zero disables
// throttling.
func WithMaxTicksPerSec(n int) PipelineOption {
	return func(p *TickPipeline) {
		p.maxPerSec = float64(n)
		p.burst = float64(2 * n)
	}
}

// NewTickPipeline creates a pipeline forwarding to applier.
func NewTickPipeline(applier Applier, metrics domrepo.Metrics, opts ...PipelineOption) *TickPipeline {
	p := &TickPipeline{
		applier:   applier,
		metrics:   metrics,
		limiter:   ratelimit.New(),
		maxPerSec: 20,
		burst:     40,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process validates one tick and forwards it unless throttled.
func (p *TickPipeline) Process(tick models.Tick) error {
	if err := validateTick(tick); err != nil {
		p.metrics.RecordMarketSkip("tick_invalid")
		return err
	}
	if p.maxPerSec > 0 && !p.limiter.Allow(tick.Market, p.burst, p.maxPerSec) {
		// Throttled ticks drop silently; the next accepted tick carries the
		// same last-price information.
		p.metrics.RecordMarketSkip("tick_throttled")
		return nil
	}
	p.applier.Apply(tick)
	return nil
}

func validateTick(tick models.Tick) error {
	if tick.Market == "" {
		return fmt.Errorf("tick market empty")
	}
	if !tick.Price.IsPositive() {
		return fmt.Errorf("tick price not positive: %s", tick.Price)
	}
	if tick.Time.IsZero() {
		return fmt.Errorf("tick time zero")
	}
	return nil
}
