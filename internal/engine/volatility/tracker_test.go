package volatility

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bwight-dev/turtle-trader-sub001/internal/domain/models"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func bar(market string, day int, open, high, low, close string) models.Bar {
	return models.Bar{
		Market: market,
		Date:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day),
		Open:   d(open),
		High:   d(high),
		Low:    d(low),
		Close:  d(close),
	}
}

func TestTrueRangeFirstBarUsesHighLowOnly(t *testing.T) {
	tr := NewTracker(20)
	st, err := tr.Update(bar("GC", 0, "100", "105", "98", "103"))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !st.TrueRange.Equal(d("7")) {
		t.Fatalf("first-bar TR = %s, want 7", st.TrueRange)
	}
}

func TestTrueRangeGapBeyondPrevClose(t *testing.T) {
	cases := []struct {
		name string
		b    models.Bar
		want string
	}{
		{"gap up", bar("GC", 1, "110", "112", "109", "111"), "9"},    // |112-103|
		{"gap down", bar("GC", 1, "95", "96", "94", "95"), "9"},      // |103-94|
		{"inside range", bar("GC", 1, "102", "104", "101", "103"), "3"}, // high-low
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := NewTracker(20)
			if _, err := tr.Update(bar("GC", 0, "100", "105", "98", "103")); err != nil {
				t.Fatalf("seed bar: %v", err)
			}
			st, err := tr.Update(tc.b)
			if err != nil {
				t.Fatalf("update: %v", err)
			}
			if !st.TrueRange.Equal(d(tc.want)) {
				t.Fatalf("TR = %s, want %s", st.TrueRange, tc.want)
			}
		})
	}
}

func TestSeedIsSimpleAverageThenWilder(t *testing.T) {
	tr := NewTracker(4)
	// Four bars with TRs 7, 3, 5, 1 (each bar's range contains prev close).
	bars := []models.Bar{
		bar("SI", 0, "100", "105", "98", "100"),
		bar("SI", 1, "100", "102", "99", "100"),
		bar("SI", 2, "100", "103", "98", "100"),
		bar("SI", 3, "100", "100.5", "99.5", "100"),
	}
	var last models.VolatilityState
	for _, b := range bars {
		var err error
		last, err = tr.Update(b)
		if err != nil {
			t.Fatalf("update: %v", err)
		}
	}
	if !last.N.Equal(d("4")) {
		t.Fatalf("seed N = %s, want 4", last.N)
	}

	// Next TR = 8: N = (3*4 + 8) / 4 = 5.
	st, err := tr.Update(bar("SI", 4, "100", "106", "98", "100"))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !st.N.Equal(d("5")) {
		t.Fatalf("smoothed N = %s, want 5", st.N)
	}
}

func TestNRequiresWarmup(t *testing.T) {
	tr := NewTracker(4)
	for i := 0; i < 3; i++ {
		if _, err := tr.Update(bar("HG", i, "100", "101", "99", "100")); err != nil {
			t.Fatalf("update: %v", err)
		}
	}
	if _, err := tr.N("HG"); !errors.Is(err, models.ErrInsufficientHistory) {
		t.Fatalf("expected ErrInsufficientHistory, got %v", err)
	}
	if tr.Ready("HG") {
		t.Fatal("Ready should be false before warm-up")
	}
	if _, err := tr.Update(bar("HG", 3, "100", "101", "99", "100")); err != nil {
		t.Fatalf("update: %v", err)
	}
	n, err := tr.N("HG")
	if err != nil {
		t.Fatalf("N after warm-up: %v", err)
	}
	if !n.Equal(d("2")) {
		t.Fatalf("N = %s, want 2", n)
	}
}

func TestNForUnknownMarket(t *testing.T) {
	tr := NewTracker(20)
	if _, err := tr.N("ZC"); !errors.Is(err, models.ErrInsufficientHistory) {
		t.Fatalf("expected ErrInsufficientHistory, got %v", err)
	}
}

func TestOutOfOrderBarIsInconsistent(t *testing.T) {
	tr := NewTracker(20)
	if _, err := tr.Update(bar("CL", 5, "100", "101", "99", "100")); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := tr.Update(bar("CL", 3, "100", "101", "99", "100")); !errors.Is(err, models.ErrInconsistentState) {
		t.Fatalf("expected ErrInconsistentState, got %v", err)
	}
}

func TestMarketsAreIsolated(t *testing.T) {
	tr := NewTracker(2)
	if _, err := tr.Update(bar("GC", 0, "100", "110", "90", "100")); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.Update(bar("GC", 1, "100", "110", "90", "100")); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.Update(bar("SI", 0, "10", "11", "9", "10")); err != nil {
		t.Fatal(err)
	}
	if !tr.Ready("GC") {
		t.Fatal("GC should be warm")
	}
	if tr.Ready("SI") {
		t.Fatal("SI should still be warming up")
	}
}
