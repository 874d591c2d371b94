package marketdata

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bwight-dev/turtle-trader-sub001/internal/domain/models"
)

// Book folds ticks into the two views the engine reads: the latest price per
// market for the monitor, and the forming daily bar per market for the scan.
type Book struct {
	mu     sync.RWMutex
	latest map[string]decimal.Decimal
	bars   map[string]*models.Bar
}

// NewBook creates an empty book.
func NewBook() *Book {
	return &Book{
		latest: make(map[string]decimal.Decimal),
		bars:   make(map[string]*models.Bar),
	}
}

// Apply folds one tick into the latest price and the forming bar.
func (b *Book) Apply(tick models.Tick) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.latest[tick.Market] = tick.Price

	bar, ok := b.bars[tick.Market]
	if !ok {
		b.bars[tick.Market] = &models.Bar{
			Market: tick.Market,
			Date:   tick.Time,
			Open:   tick.Price,
			High:   tick.Price,
			Low:    tick.Price,
			Close:  tick.Price,
		}
		return
	}
	if tick.Price.GreaterThan(bar.High) {
		bar.High = tick.Price
	}
	if tick.Price.LessThan(bar.Low) {
		bar.Low = tick.Price
	}
	bar.Close = tick.Price
}

// Latest returns a snapshot of last prices, the monitor cycle's input.
func (b *Book) Latest() map[string]decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]decimal.Decimal, len(b.latest))
	for k, v := range b.latest {
		out[k] = v
	}
	return out
}

// Price returns the last traded price for one market.
func (b *Book) Price(market string) (decimal.Decimal, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.latest[market]
	return p, ok
}

// CloseDay finalizes and clears the forming bars, stamping them with the
// trading date. Markets with no ticks today produce no bar.
func (b *Book) CloseDay(date time.Time) []models.Bar {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.Bar, 0, len(b.bars))
	for _, bar := range b.bars {
		bar.Date = date
		out = append(out, *bar)
	}
	b.bars = make(map[string]*models.Bar)
	return out
}
