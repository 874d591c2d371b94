package marketdata

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bwight-dev/turtle-trader-sub001/internal/domain/models"
)

func bookTick(market, price string, at time.Time) models.Tick {
	return models.Tick{Market: market, Price: decimal.RequireFromString(price), Time: at}
}

func TestBookFoldsTicksIntoBar(t *testing.T) {
	b := NewBook()
	at := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

	b.Apply(bookTick("GC", "1980.5", at))
	b.Apply(bookTick("GC", "1984.0", at.Add(time.Minute)))
	b.Apply(bookTick("GC", "1979.2", at.Add(2*time.Minute)))
	b.Apply(bookTick("GC", "1982.1", at.Add(3*time.Minute)))

	last, ok := b.Price("GC")
	require.True(t, ok)
	assert.Equal(t, "1982.1", last.String())

	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	bars := b.CloseDay(date)
	require.Len(t, bars, 1)
	bar := bars[0]
	assert.Equal(t, "GC", bar.Market)
	assert.Equal(t, date, bar.Date)
	assert.Equal(t, "1980.5", bar.Open.String())
	assert.Equal(t, "1984", bar.High.String())
	assert.Equal(t, "1979.2", bar.Low.String())
	assert.Equal(t, "1982.1", bar.Close.String())
}

func TestBookCloseDayClearsFormingBars(t *testing.T) {
	b := NewBook()
	at := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

	b.Apply(bookTick("GC", "1980.5", at))
	require.Len(t, b.CloseDay(at), 1)

	// No ticks since close: nothing to finalize, but last price survives.
	assert.Empty(t, b.CloseDay(at.AddDate(0, 0, 1)))
	_, ok := b.Price("GC")
	assert.True(t, ok)
}

func TestBookLatestIsSnapshot(t *testing.T) {
	b := NewBook()
	at := time.Now()
	b.Apply(bookTick("GC", "1980.5", at))
	b.Apply(bookTick("SI", "24.1", at))

	snap := b.Latest()
	require.Len(t, snap, 2)

	b.Apply(bookTick("GC", "1990", at))
	assert.Equal(t, "1980.5", snap["GC"].String(), "snapshot is detached from the book")
}
