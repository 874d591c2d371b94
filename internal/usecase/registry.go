package usecase

import (
	"sync"

	"github.com/bwight-dev/turtle-trader-sub001/internal/domain/models"
)

// Registry holds the open position slots, one per (market, system), and the
// keyed locks that serialize evaluation. Callers lock by market, so the S1
// and S2 positions of one market never evaluate concurrently and the
// market-wide unit count they read stays consistent; distinct markets
// evaluate in parallel.
type Registry struct {
	mu        sync.RWMutex
	positions map[string]*models.Position
	locks     map[string]*sync.Mutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		positions: make(map[string]*models.Position),
		locks:     make(map[string]*sync.Mutex),
	}
}

// Seed loads persisted open positions on process start.
func (r *Registry) Seed(positions []*models.Position) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range positions {
		if p.Status == models.PositionOpen {
			r.positions[p.Key()] = p
		}
	}
}

// LockKey acquires the keyed lock and returns the unlock func.
func (r *Registry) LockKey(key string) func() {
	r.mu.Lock()
	l, ok := r.locks[key]
	if !ok {
		l = &sync.Mutex{}
		r.locks[key] = l
	}
	r.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Put registers an open position in its slot.
func (r *Registry) Put(p *models.Position) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.positions[p.Key()] = p
}

// Get returns the open position for a slot.
func (r *Registry) Get(market string, system models.System) (*models.Position, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.positions[models.PositionKey(market, system)]
	return p, ok
}

// Remove clears a slot after its position closes.
func (r *Registry) Remove(market string, system models.System) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.positions, models.PositionKey(market, system))
}

// Open returns a snapshot slice of all open positions.
func (r *Registry) Open() []*models.Position {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Position, 0, len(r.positions))
	for _, p := range r.positions {
		out = append(out, p)
	}
	return out
}

// MarketUnits sums unit counts across the market's open positions, both
// systems included. This is the count the per-market cap binds.
func (r *Registry) MarketUnits(market string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := 0
	for _, p := range r.positions {
		if p.Market == market {
			total += len(p.Units)
		}
	}
	return total
}

// TotalUnits sums unit counts across open positions.
func (r *Registry) TotalUnits() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := 0
	for _, p := range r.positions {
		total += len(p.Units)
	}
	return total
}
