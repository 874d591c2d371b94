package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bwight-dev/turtle-trader-sub001/internal/domain/models"
)

type fakeStore struct {
	mu        sync.Mutex
	positions map[string]*models.Position
	account   *models.Account
	outcomes  []models.TradeOutcome
	saveErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{positions: make(map[string]*models.Position)}
}

func (s *fakeStore) LoadPositions(context.Context) ([]*models.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Position, 0, len(s.positions))
	for _, p := range s.positions {
		out = append(out, p)
	}
	return out, nil
}

func (s *fakeStore) SavePosition(_ context.Context, p *models.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.positions[p.Key()] = p
	return nil
}

func (s *fakeStore) DeletePosition(_ context.Context, market string, system models.System) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.positions, models.PositionKey(market, system))
	return nil
}

func (s *fakeStore) LoadAccount(context.Context) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account, nil
}

func (s *fakeStore) SaveAccount(_ context.Context, a *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.account = a
	return nil
}

func (s *fakeStore) LoadOutcomes(context.Context) ([]models.TradeOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcomes, nil
}

func (s *fakeStore) SaveOutcome(_ context.Context, o models.TradeOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, o)
	return nil
}

func (s *fakeStore) Health(context.Context) error { return nil }
func (s *fakeStore) Close() error                 { return nil }

type fakeSink struct {
	mu     sync.Mutex
	events []*models.AuditEvent
}

func (s *fakeSink) Record(_ context.Context, ev *models.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *fakeSink) Close() error { return nil }

func (s *fakeSink) kinds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, ev := range s.events {
		out[i] = ev.Kind
	}
	return out
}

func (s *fakeSink) byKind(kind string) []*models.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.AuditEvent
	for _, ev := range s.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// fakeGateway fills every intent at the intent-independent fill price, or
// returns the configured rejection.
type fakeGateway struct {
	mu      sync.Mutex
	fill    decimal.Decimal
	reject  bool
	err     error
	intents []models.OrderIntent
}

func (g *fakeGateway) Submit(_ context.Context, intent models.OrderIntent) (*models.ExecutionReport, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intents = append(g.intents, intent)
	if g.err != nil {
		return nil, g.err
	}
	if g.reject {
		return &models.ExecutionReport{Status: models.ExecRejected, Reason: "no liquidity"}, nil
	}
	return &models.ExecutionReport{Status: models.ExecFilled, Price: g.fill, Time: time.Now()}, nil
}

type fakeMetrics struct {
	mu         sync.Mutex
	signals    int
	admissions map[string]int
	entries    int
	pyramids   int
	exits      int
	skips      map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{admissions: make(map[string]int), skips: make(map[string]int)}
}

func (m *fakeMetrics) RecordSignal(string, string, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signals++
}

func (m *fakeMetrics) RecordAdmission(verdict string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.admissions[verdict]++
}

func (m *fakeMetrics) RecordEntry(string, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries++
}

func (m *fakeMetrics) RecordPyramid(string, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pyramids++
}

func (m *fakeMetrics) RecordExit(string, string, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exits++
}

func (m *fakeMetrics) RecordMarketSkip(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skips[reason]++
}

func (m *fakeMetrics) RecordEquity(float64, float64) {}
func (m *fakeMetrics) RecordOpenUnits(int)           {}
func (m *fakeMetrics) RecordCycleLatency(string, float64) {
}
