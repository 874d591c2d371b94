package position

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/bwight-dev/turtle-trader-sub001/internal/domain/models"
	"github.com/bwight-dev/turtle-trader-sub001/internal/engine/channel"
	"github.com/bwight-dev/turtle-trader-sub001/internal/engine/risk"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

// newFixture builds a machine over a detector holding 55 flat GC bars in
// [low, high], so S1 exit levels are the window extremes.
func newFixture(t *testing.T, low, high string) (*Machine, *channel.Detector) {
	t.Helper()
	det := channel.NewDetector()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 55; i++ {
		det.Append(models.Bar{
			Market: "GC",
			Date:   base.AddDate(0, 0, i),
			Open:   d(low),
			High:   d(high),
			Low:    d(low),
			Close:  d(high),
		})
	}
	sizer := risk.NewSizer(risk.SizerConfig{
		RiskPercent:       d("0.005"),
		StopMultiplier:    d("2"),
		PyramidIntervalN:  d("0.5"),
		MaxUnitsPerMarket: 4,
	})
	return NewMachine(det, sizer, d("0.5")), det
}

func openLong(m *Machine, entry, n string) *models.Position {
	sig := models.Signal{Market: "GC", System: models.SystemS1, Direction: models.Long, DetectedAt: time.Now()}
	sz := models.Sizing{Units: 10, N: d(n), RiskPct: d("0.005")}
	return m.OpenPosition(sig, sz, d(entry), time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC))
}

func TestOpenPositionSetsInitialStop(t *testing.T) {
	m, _ := newFixture(t, "95", "100")
	p := openLong(m, "100", "2")

	require.Equal(t, models.PositionOpen, p.Status)
	require.Len(t, p.Units, 1)
	require.True(t, p.CurrentStop.Equal(d("96")), "stop %s", p.CurrentStop)
	require.True(t, p.InitialStop.Equal(p.CurrentStop))
}

func TestApplyPyramidMovesStopForAllUnits(t *testing.T) {
	m, _ := newFixture(t, "95", "100")
	p := openLong(m, "100", "2")

	m.ApplyPyramid(p, models.Sizing{Units: 8, N: d("2.2")}, d("101"), time.Now())
	m.ApplyPyramid(p, models.Sizing{Units: 6, N: d("2.5")}, d("102.2"), time.Now())

	require.Len(t, p.Units, 3)
	// Stop derives from the newest entry only: 102.2 - 2*2.5 = 97.2.
	require.True(t, p.CurrentStop.Equal(d("97.2")), "stop %s", p.CurrentStop)
	// Initial stop is untouched by pyramids.
	require.True(t, p.InitialStop.Equal(d("96")))
	require.EqualValues(t, 24, p.TotalSize())
}

func TestEvaluateStopPriorityOnSimultaneousBreach(t *testing.T) {
	m, _ := newFixture(t, "95", "100")
	p := openLong(m, "100", "2") // stop 96, channel exit 95

	// Price through both the stop and the channel low: stop wins.
	ev, err := m.Evaluate(p, 1, d("94"), d("2"), d("50000"), d("1"))
	require.NoError(t, err)
	require.Equal(t, ActionExit, ev.Action)
	require.Equal(t, ExitReasonStop, ev.ExitReason)
	require.True(t, ev.ExitPrice.Equal(d("96")), "exit price %s", ev.ExitPrice)
}

func TestEvaluateChannelExitWhenStopUntouched(t *testing.T) {
	m, _ := newFixture(t, "95", "100")
	p := openLong(m, "100", "3") // stop 94, channel exit 95

	ev, err := m.Evaluate(p, 1, d("94.5"), d("3"), d("50000"), d("1"))
	require.NoError(t, err)
	require.Equal(t, ActionExit, ev.Action)
	require.Equal(t, ExitReasonChannel, ev.ExitReason)
	require.True(t, ev.ExitPrice.Equal(d("95")))
}

func TestEvaluatePyramidWhenDue(t *testing.T) {
	m, _ := newFixture(t, "95", "100")
	p := openLong(m, "100", "2") // pyramid trigger 101

	ev, err := m.Evaluate(p, 1, d("101"), d("2"), d("50000"), d("1"))
	require.NoError(t, err)
	require.Equal(t, ActionPyramid, ev.Action)
	require.NotNil(t, ev.Sizing)
	require.EqualValues(t, 125, ev.Sizing.Units) // 250 / 2
}

func TestEvaluateNoPyramidWhenMarketAtCap(t *testing.T) {
	m, _ := newFixture(t, "95", "100")
	p := openLong(m, "100", "2") // pyramid trigger 101

	// The sibling system's position brings the market to four units: the
	// trigger price no longer produces an add.
	ev, err := m.Evaluate(p, 4, d("101"), d("2"), d("50000"), d("1"))
	require.NoError(t, err)
	require.Equal(t, ActionHold, ev.Action)
}

func TestEvaluateHoldInsideBands(t *testing.T) {
	m, _ := newFixture(t, "95", "100")
	p := openLong(m, "100", "2")

	ev, err := m.Evaluate(p, 1, d("100.5"), d("2"), d("50000"), d("1"))
	require.NoError(t, err)
	require.Equal(t, ActionHold, ev.Action)
}

func TestEvaluateIsIdempotent(t *testing.T) {
	m, _ := newFixture(t, "95", "100")
	p := openLong(m, "100", "2")

	a, err := m.Evaluate(p, 1, d("101"), d("2"), d("50000"), d("1"))
	require.NoError(t, err)
	b, err := m.Evaluate(p, 1, d("101"), d("2"), d("50000"), d("1"))
	require.NoError(t, err)

	require.Equal(t, a.Action, b.Action)
	require.True(t, a.Sizing.RawUnits.Equal(b.Sizing.RawUnits))
	require.Len(t, p.Units, 1, "evaluate must not mutate units")
}

func TestEvaluateExitBeforePyramid(t *testing.T) {
	m, _ := newFixture(t, "95", "100")
	p := &models.Position{
		Market: "GC", System: models.SystemS1, Direction: models.Short,
		Units:       []models.Unit{{EntryPrice: d("95"), NAtEntry: d("2"), Size: 10}},
		CurrentStop: d("99"),
		InitialStop: d("99"),
		Status:      models.PositionOpen,
	}
	// Price 100: beyond the short pyramid trigger is impossible here, but the
	// short exit channel (10-day high 100) and stop (99) are both touched.
	ev, err := m.Evaluate(p, 1, d("100"), d("2"), d("50000"), d("1"))
	require.NoError(t, err)
	require.Equal(t, ActionExit, ev.Action)
	require.Equal(t, ExitReasonStop, ev.ExitReason)
}

func TestCloseClassifiesStoppedNeverProfitableAsLoser(t *testing.T) {
	m, _ := newFixture(t, "95", "100")
	p := openLong(m, "100", "2") // initial stop 96

	out := m.Close(p, d("96"), time.Now())
	require.Equal(t, models.PositionClosed, p.Status)
	require.Equal(t, models.Loser, out.Result)
	require.True(t, out.NMultiple.Equal(d("-2")), "n multiple %s", out.NMultiple)
}

func TestCloseNearStopWithinToleranceIsLoser(t *testing.T) {
	m, _ := newFixture(t, "95", "100")
	p := openLong(m, "100", "2") // stop 96, tolerance 0.5N = 1

	out := m.Close(p, d("96.9"), time.Now())
	require.Equal(t, models.Loser, out.Result)
}

func TestCloseProfitableTradeIsWinner(t *testing.T) {
	m, _ := newFixture(t, "95", "100")
	p := openLong(m, "100", "2")

	// Price ran favorably before the exit.
	_, err := m.Evaluate(p, 1, d("104"), d("2"), d("50000"), d("1"))
	require.NoError(t, err)
	require.True(t, p.EverProfitable)

	out := m.Close(p, d("96"), time.Now())
	require.Equal(t, models.Winner, out.Result)
}

func TestCloseChannelExitFarFromStopIsWinner(t *testing.T) {
	m, _ := newFixture(t, "95", "100")
	p := openLong(m, "100", "2")

	out := m.Close(p, d("98.5"), time.Now())
	require.Equal(t, models.Winner, out.Result)
}

func TestRealizedPnLSumsUnits(t *testing.T) {
	m, _ := newFixture(t, "95", "100")
	p := openLong(m, "100", "2")
	m.ApplyPyramid(p, models.Sizing{Units: 5, N: d("2")}, d("101"), time.Now())

	pnl := m.RealizedPnL(p, d("103"))
	// 10 units from 100 and 5 from 101: 10*3 + 5*2 = 40.
	require.True(t, pnl.Equal(d("40")), "pnl %s", pnl)
}

func TestEvaluateClosedPositionIsInconsistent(t *testing.T) {
	m, _ := newFixture(t, "95", "100")
	p := openLong(m, "100", "2")
	p.Status = models.PositionClosed

	_, err := m.Evaluate(p, 1, d("100"), d("2"), d("50000"), d("1"))
	require.ErrorIs(t, err, models.ErrInconsistentState)
}

func TestEvaluateMissingStopIsInconsistent(t *testing.T) {
	m, _ := newFixture(t, "95", "100")
	p := openLong(m, "100", "2")
	p.CurrentStop = decimal.Decimal{}

	_, err := m.Evaluate(p, 1, d("100"), d("2"), d("50000"), d("1"))
	require.ErrorIs(t, err, models.ErrInconsistentState)
}
