package middleware

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bwight-dev/turtle-trader-sub001/internal/domain/models"
)

type fakeApplier struct {
	ticks []models.Tick
}

func (f *fakeApplier) Apply(tick models.Tick) { f.ticks = append(f.ticks, tick) }

type fakeMetrics struct {
	skips map[string]int
}

func (f *fakeMetrics) RecordSignal(string, string, string)    {}
func (f *fakeMetrics) RecordAdmission(string)                 {}
func (f *fakeMetrics) RecordEntry(string, string)             {}
func (f *fakeMetrics) RecordPyramid(string, string)           {}
func (f *fakeMetrics) RecordExit(string, string, string)      {}
func (f *fakeMetrics) RecordEquity(float64, float64)          {}
func (f *fakeMetrics) RecordOpenUnits(int)                    {}
func (f *fakeMetrics) RecordCycleLatency(string, float64)     {}
func (f *fakeMetrics) RecordMarketSkip(reason string) {
	if f.skips == nil {
		f.skips = make(map[string]int)
	}
	f.skips[reason]++
}

func tick(market, price string) models.Tick {
	return models.Tick{
		Market: market,
		Price:  decimal.RequireFromString(price),
		Time:   time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC),
	}
}

func TestTickPipelineForwardsValidTick(t *testing.T) {
	applier := &fakeApplier{}
	p := NewTickPipeline(applier, &fakeMetrics{})

	require.NoError(t, p.Process(tick("GC", "1980.5")))

	require.Len(t, applier.ticks, 1)
	assert.Equal(t, "GC", applier.ticks[0].Market)
}

func TestTickPipelineRejectsInvalidTicks(t *testing.T) {
	applier := &fakeApplier{}
	m := &fakeMetrics{}
	p := NewTickPipeline(applier, m)

	assert.Error(t, p.Process(models.Tick{Price: decimal.NewFromInt(1), Time: time.Now()}))
	assert.Error(t, p.Process(tick("GC", "0")))
	assert.Error(t, p.Process(models.Tick{Market: "GC", Price: decimal.NewFromInt(1)}))

	assert.Empty(t, applier.ticks)
	assert.Equal(t, 3, m.skips["tick_invalid"])
}

func TestTickPipelineThrottlesPerMarket(t *testing.T) {
	applier := &fakeApplier{}
	m := &fakeMetrics{}
	p := NewTickPipeline(applier, m, WithMaxTicksPerSec(1))

	// Burst capacity is 2x the rate; the third tick in the same instant drops.
	require.NoError(t, p.Process(tick("GC", "1980.5")))
	require.NoError(t, p.Process(tick("GC", "1980.6")))
	require.NoError(t, p.Process(tick("GC", "1980.7")))

	assert.Len(t, applier.ticks, 2)
	assert.Equal(t, 1, m.skips["tick_throttled"])

	// A different market has its own bucket.
	require.NoError(t, p.Process(tick("SI", "24.1")))
	assert.Len(t, applier.ticks, 3)
}

func TestTickPipelineZeroRateDisablesThrottle(t *testing.T) {
	applier := &fakeApplier{}
	p := NewTickPipeline(applier, &fakeMetrics{}, WithMaxTicksPerSec(0))

	for i := 0; i < 10; i++ {
		require.NoError(t, p.Process(tick("GC", "1980.5")))
	}
	assert.Len(t, applier.ticks, 10)
}
