package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bwight-dev/turtle-trader-sub001/internal/domain/models"
	"github.com/bwight-dev/turtle-trader-sub001/internal/engine/admission"
	"github.com/bwight-dev/turtle-trader-sub001/internal/engine/channel"
	"github.com/bwight-dev/turtle-trader-sub001/internal/engine/ledger"
	"github.com/bwight-dev/turtle-trader-sub001/internal/engine/position"
	"github.com/bwight-dev/turtle-trader-sub001/internal/engine/risk"
	"github.com/bwight-dev/turtle-trader-sub001/internal/engine/volatility"
	"github.com/bwight-dev/turtle-trader-sub001/pkg/logger"
)

type fixture struct {
	tracker  *volatility.Tracker
	detector *channel.Detector
	ledger   *ledger.Ledger
	sizer    *risk.Sizer
	pipeline *admission.Pipeline
	machine  *position.Machine
	registry *Registry
	accounts *AccountManager
	store    *fakeStore
	gateway  *fakeGateway
	sink     *fakeSink
	metrics  *fakeMetrics
	scan     *Scan
	monitor  *Monitor

	// intradayScan shares every component with scan but detects entries on
	// the bar's range instead of its close.
	intradayScan *Scan
}

func newFixture(t *testing.T, seed []models.TradeOutcome) *fixture {
	t.Helper()

	f := &fixture{
		tracker:  volatility.NewTracker(5),
		detector: channel.NewDetector(),
		ledger:   ledger.New(seed),
		store:    newFakeStore(),
		gateway:  &fakeGateway{fill: dec("100.60")},
		sink:     &fakeSink{},
		metrics:  newFakeMetrics(),
		registry: NewRegistry(),
	}
	f.sizer = risk.NewSizer(risk.SizerConfig{
		RiskPercent:       dec("0.005"),
		StopMultiplier:    dec("2"),
		PyramidIntervalN:  dec("0.5"),
		MaxUnitsPerMarket: 4,
	})
	f.pipeline = admission.NewPipeline(f.ledger, f.sizer, admission.Config{
		MaxUnitsPerMarket: 4,
		MaxUnitsPerGroup:  6,
		Mode:              admission.LimitUnitCount,
		MaxUnitsTotal:     12,
		Groups:            map[string]string{"GC": "metals", "SI": "metals"},
	})
	f.machine = position.NewMachine(f.detector, f.sizer, dec("0.5"))

	log := logger.Nop()
	dd := risk.NewDrawdownController(dec("0.10"), dec("0.20"), decimal.Zero)
	f.accounts = NewAccountManager(dd, f.store, log, nil)

	auditor := NewAuditor(f.sink, log)
	markets := map[string]MarketSpec{
		"GC": {PointValue: decimal.NewFromInt(1), Group: "metals"},
		"SI": {PointValue: decimal.NewFromInt(1), Group: "metals"},
	}
	f.scan = NewScan(f.tracker, f.detector, f.pipeline, f.machine, f.registry,
		f.accounts, f.store, f.gateway, auditor, f.metrics, log, markets, true)
	f.intradayScan = NewScan(f.tracker, f.detector, f.pipeline, f.machine, f.registry,
		f.accounts, f.store, f.gateway, auditor, f.metrics, log, markets, false)
	f.monitor = NewMonitor(f.tracker, f.machine, f.registry, f.accounts,
		f.ledger, f.store, f.gateway, auditor, f.metrics, log, markets)
	return f
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// feedHistory appends `days` flat bars (high 100.5, low 99.5, close 100) to
// both the tracker and the detector, leaving N at exactly 1.
func (f *fixture) feedHistory(t *testing.T, market string, days int) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < days; i++ {
		bar := models.Bar{
			Market: market,
			Date:   start.AddDate(0, 0, i),
			Open:   dec("100"),
			High:   dec("100.5"),
			Low:    dec("99.5"),
			Close:  dec("100"),
		}
		_, err := f.tracker.Update(bar)
		require.NoError(t, err)
		f.detector.Append(bar)
	}
}

func breakoutBar(market string) models.Bar {
	return models.Bar{
		Market: market,
		Date:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Open:   dec("100"),
		High:   dec("101.2"),
		Low:    dec("100"),
		Close:  dec("101"),
	}
}

func TestScanRequiresEquitySnapshot(t *testing.T) {
	f := newFixture(t, nil)
	f.feedHistory(t, "GC", 20)

	err := f.scan.Run(context.Background(), []models.Bar{breakoutBar("GC")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInconsistentState))
	assert.Empty(t, f.gateway.intents)
}

func TestScanOpensPositionOnBreakout(t *testing.T) {
	f := newFixture(t, nil)
	f.feedHistory(t, "GC", 20)
	_, err := f.accounts.ReportEquity(context.Background(), dec("100000"))
	require.NoError(t, err)

	require.NoError(t, f.scan.Run(context.Background(), []models.Bar{breakoutBar("GC")}))

	p, ok := f.registry.Get("GC", models.SystemS1)
	require.True(t, ok)
	assert.Equal(t, models.Long, p.Direction)
	assert.Equal(t, models.PositionOpen, p.Status)
	require.Len(t, p.Units, 1)
	assert.Positive(t, p.Units[0].Size)
	assert.True(t, p.Units[0].EntryPrice.Equal(dec("100.60")), "entry at the gateway fill")

	// Stop sits stop_multiplier × N below the fill.
	n := p.Units[0].NAtEntry
	wantStop := dec("100.60").Sub(n.Mul(dec("2")))
	assert.True(t, p.CurrentStop.Equal(wantStop), "stop %s want %s", p.CurrentStop, wantStop)
	assert.True(t, p.InitialStop.Equal(p.CurrentStop))

	// Persisted and audited.
	assert.Contains(t, f.store.positions, p.Key())
	kinds := f.sink.kinds()
	assert.Contains(t, kinds, models.AuditSignal)
	assert.Contains(t, kinds, models.AuditAdmission)
	assert.Contains(t, kinds, models.AuditEntry)
	assert.Equal(t, 1, f.metrics.entries)

	require.Len(t, f.gateway.intents, 1)
	assert.Equal(t, models.IntentEntry, f.gateway.intents[0].Kind)
}

func TestScanQuietDayOpensNothing(t *testing.T) {
	f := newFixture(t, nil)
	f.feedHistory(t, "GC", 20)
	_, err := f.accounts.ReportEquity(context.Background(), dec("100000"))
	require.NoError(t, err)

	inside := models.Bar{
		Market: "GC",
		Date:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Open:   dec("100"),
		High:   dec("100.4"),
		Low:    dec("99.6"),
		Close:  dec("100.1"),
	}
	require.NoError(t, f.scan.Run(context.Background(), []models.Bar{inside}))

	assert.Empty(t, f.registry.Open())
	assert.Empty(t, f.gateway.intents)
	assert.Equal(t, 0, f.metrics.signals)
}

func TestScanIntradayTouchEntryConvention(t *testing.T) {
	// The day's high pierces the 20-day channel (100.5) but the close pulls
	// back inside. Close-convention scans stay quiet; the intraday-touch
	// convention trades the touch.
	touched := models.Bar{
		Market: "GC",
		Date:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Open:   dec("100"),
		High:   dec("100.8"),
		Low:    dec("99.8"),
		Close:  dec("100.2"),
	}

	f := newFixture(t, nil)
	f.feedHistory(t, "GC", 20)
	_, err := f.accounts.ReportEquity(context.Background(), dec("100000"))
	require.NoError(t, err)

	require.NoError(t, f.scan.Run(context.Background(), []models.Bar{touched}))
	assert.Empty(t, f.registry.Open(), "close back inside the channel: no entry on close convention")

	g := newFixture(t, nil)
	g.feedHistory(t, "GC", 20)
	_, err = g.accounts.ReportEquity(context.Background(), dec("100000"))
	require.NoError(t, err)

	require.NoError(t, g.intradayScan.Run(context.Background(), []models.Bar{touched}))
	p, ok := g.registry.Get("GC", models.SystemS1)
	require.True(t, ok)
	assert.Equal(t, models.Long, p.Direction)
}

func TestScanSkipsMarketWithShortHistory(t *testing.T) {
	f := newFixture(t, nil)
	f.feedHistory(t, "GC", 7) // below both the S1 window and the N period
	_, err := f.accounts.ReportEquity(context.Background(), dec("100000"))
	require.NoError(t, err)

	require.NoError(t, f.scan.Run(context.Background(), []models.Bar{breakoutBar("GC")}))

	assert.Empty(t, f.registry.Open())
	assert.Positive(t, f.metrics.skips["insufficient_history"])
	// The bar still joined the history for future cycles.
	_, err = f.detector.Channel("GC", 8)
	assert.NoError(t, err)
}

func TestScanS1FilteredAfterWinner(t *testing.T) {
	seed := []models.TradeOutcome{{
		Market: "GC",
		System: models.SystemS1,
		Result: models.Winner,
	}}
	f := newFixture(t, seed)
	f.feedHistory(t, "GC", 20)
	_, err := f.accounts.ReportEquity(context.Background(), dec("100000"))
	require.NoError(t, err)

	require.NoError(t, f.scan.Run(context.Background(), []models.Bar{breakoutBar("GC")}))

	assert.Empty(t, f.registry.Open())
	assert.Empty(t, f.gateway.intents, "a filtered signal never reaches the gateway")
	rejections := f.sink.byKind(models.AuditAdmission)
	require.Len(t, rejections, 1)
	assert.Equal(t, string(models.RejectFilteredS1), rejections[0].Reason)
}

func TestScanS2BypassesWinnerFilter(t *testing.T) {
	seed := []models.TradeOutcome{{
		Market: "GC",
		System: models.SystemS1,
		Result: models.Winner,
	}}
	f := newFixture(t, seed)
	f.feedHistory(t, "GC", 55)
	_, err := f.accounts.ReportEquity(context.Background(), dec("100000"))
	require.NoError(t, err)

	require.NoError(t, f.scan.Run(context.Background(), []models.Bar{breakoutBar("GC")}))

	// S1 rejected by the filter; the 55-day breakout still trades.
	_, s1Open := f.registry.Get("GC", models.SystemS1)
	assert.False(t, s1Open)
	p, ok := f.registry.Get("GC", models.SystemS2)
	require.True(t, ok)
	assert.Equal(t, models.SystemS2, p.System)
}

func TestScanRejectedFillLeavesNoPosition(t *testing.T) {
	f := newFixture(t, nil)
	f.gateway.reject = true
	f.feedHistory(t, "GC", 20)
	_, err := f.accounts.ReportEquity(context.Background(), dec("100000"))
	require.NoError(t, err)

	require.NoError(t, f.scan.Run(context.Background(), []models.Bar{breakoutBar("GC")}))

	assert.Empty(t, f.registry.Open())
	assert.Empty(t, f.store.positions)
	assert.NotEmpty(t, f.sink.byKind(models.AuditExecFail))
}

func TestScanDuplicateSlotRejected(t *testing.T) {
	f := newFixture(t, nil)
	f.feedHistory(t, "GC", 20)
	_, err := f.accounts.ReportEquity(context.Background(), dec("100000"))
	require.NoError(t, err)

	require.NoError(t, f.scan.Run(context.Background(), []models.Bar{breakoutBar("GC")}))
	require.Len(t, f.registry.Open(), 1)

	// Next day breaks out again; the slot is taken.
	next := breakoutBar("GC")
	next.Date = next.Date.AddDate(0, 0, 1)
	next.High = dec("102.2")
	next.Close = dec("102")
	require.NoError(t, f.scan.Run(context.Background(), []models.Bar{next}))

	require.Len(t, f.registry.Open(), 1)
	var duplicate bool
	for _, ev := range f.sink.byKind(models.AuditAdmission) {
		if ev.Reason == string(models.RejectDuplicate) {
			duplicate = true
		}
	}
	assert.True(t, duplicate)
}
