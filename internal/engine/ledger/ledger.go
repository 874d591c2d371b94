// Package ledger tracks the most recently closed trade per (market, system).
// Only S1 consults it: a prior S1 winner suppresses the next S1 entry on
// that market. S2 never reads the ledger, which is exactly what makes the
// S2 failsafe work.
package ledger

import (
	"sync"

	"github.com/bwight-dev/turtle-trader-sub001/internal/domain/models"
)

// Ledger is a concurrent read-and-append store of last outcomes.
type Ledger struct {
	mu   sync.RWMutex
	last map[string]models.TradeOutcome
}

// New creates a ledger, optionally seeded from persisted outcomes. Seeds
// are applied in order, so the slice's last outcome per key wins.
func New(seed []models.TradeOutcome) *Ledger {
	l := &Ledger{last: make(map[string]models.TradeOutcome)}
	for _, o := range seed {
		l.last[models.PositionKey(o.Market, o.System)] = o
	}
	return l
}

// Record stores the outcome as the market/system's most recent.
func (l *Ledger) Record(o models.TradeOutcome) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.last[models.PositionKey(o.Market, o.System)] = o
}

// LastOutcome returns the most recently closed trade for the market and
// system, or ok=false if none exists. No prior trade is treated by callers
// as "not a winner", so the signal passes.
func (l *Ledger) LastOutcome(market string, system models.System) (models.TradeOutcome, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	o, ok := l.last[models.PositionKey(market, system)]
	return o, ok
}
