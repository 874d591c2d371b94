// Package execution holds the gateways that turn order intents into fills.
package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bwight-dev/turtle-trader-sub001/internal/domain/models"
	domrepo "github.com/bwight-dev/turtle-trader-sub001/internal/domain/repository"
	"github.com/bwight-dev/turtle-trader-sub001/pkg/logger"
)

// PriceSource supplies the last traded price for a market.
type PriceSource interface {
	Price(market string) (decimal.Decimal, bool)
}

// PaperGateway simulates execution against live prices: every market order
// fills immediately at the last price shifted against the engine by a fixed
// slippage, in basis points.
type PaperGateway struct {
	prices      PriceSource
	slippageBps decimal.Decimal
	log         *logger.Logger
}

var _ domrepo.ExecutionGateway = (*PaperGateway)(nil)

// NewPaperGateway creates a paper gateway. slippageBps is in basis points.
func NewPaperGateway(prices PriceSource, slippageBps decimal.Decimal, log *logger.Logger) *PaperGateway {
	return &PaperGateway{
		prices:      prices,
		slippageBps: slippageBps.Div(decimal.NewFromInt(10000)),
		log:         log,
	}
}

// Submit fills the intent at last price plus adverse slippage. Entries and
// pyramids slip in the direction of the position; exits slip against it.
func (g *PaperGateway) Submit(_ context.Context, intent models.OrderIntent) (*models.ExecutionReport, error) {
	if intent.Units <= 0 {
		return nil, fmt.Errorf("paper submit: non-positive units %d", intent.Units)
	}
	last, ok := g.prices.Price(intent.Market)
	if !ok {
		return &models.ExecutionReport{
			Status: models.ExecRejected,
			Reason: "no price for market",
		}, nil
	}

	slip := last.Mul(g.slippageBps)
	fill := last
	if adverseIsUp(intent) {
		fill = fill.Add(slip)
	} else {
		fill = fill.Sub(slip)
	}

	g.log.Debug("paper fill",
		logger.String("market", intent.Market),
		logger.String("kind", string(intent.Kind)),
		logger.Int64("units", intent.Units),
		logger.Decimal("last", last),
		logger.Decimal("fill", fill))

	return &models.ExecutionReport{
		Status: models.ExecFilled,
		Price:  fill,
		Time:   time.Now().UTC(),
	}, nil
}

// adverseIsUp reports whether slippage hurts by moving the fill up: buying
// (long entries/pyramids, short exits) pays up, selling fills down.
func adverseIsUp(intent models.OrderIntent) bool {
	buying := intent.Direction == models.Long
	if intent.Kind == models.IntentExit {
		buying = intent.Direction == models.Short
	}
	return buying
}
