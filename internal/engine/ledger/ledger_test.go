package ledger

import (
	"testing"

	"github.com/bwight-dev/turtle-trader-sub001/internal/domain/models"
)

func TestLastOutcomeEmpty(t *testing.T) {
	l := New(nil)
	if _, ok := l.LastOutcome("GC", models.SystemS1); ok {
		t.Fatal("expected no outcome for fresh market")
	}
}

func TestRecordOverwritesPerKey(t *testing.T) {
	l := New(nil)
	l.Record(models.TradeOutcome{Market: "GC", System: models.SystemS1, Result: models.Loser})
	l.Record(models.TradeOutcome{Market: "GC", System: models.SystemS1, Result: models.Winner})

	o, ok := l.LastOutcome("GC", models.SystemS1)
	if !ok || o.Result != models.Winner {
		t.Fatalf("expected latest winner, got %+v ok=%v", o, ok)
	}
}

func TestSystemsAreSeparateSlots(t *testing.T) {
	l := New(nil)
	l.Record(models.TradeOutcome{Market: "GC", System: models.SystemS1, Result: models.Winner})

	if _, ok := l.LastOutcome("GC", models.SystemS2); ok {
		t.Fatal("S2 slot must be independent of S1")
	}
}

func TestSeedLastWins(t *testing.T) {
	l := New([]models.TradeOutcome{
		{Market: "SI", System: models.SystemS1, Result: models.Winner},
		{Market: "SI", System: models.SystemS1, Result: models.Loser},
	})
	o, ok := l.LastOutcome("SI", models.SystemS1)
	if !ok || o.Result != models.Loser {
		t.Fatalf("expected seeded loser, got %+v", o)
	}
}
