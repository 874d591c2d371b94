package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/bwight-dev/turtle-trader-sub001/internal/domain/models"
	"github.com/bwight-dev/turtle-trader-sub001/internal/domain/repository"
	"github.com/bwight-dev/turtle-trader-sub001/internal/engine/risk"
	"github.com/bwight-dev/turtle-trader-sub001/pkg/logger"
)

// AccountManager owns the externally reported equity and the drawdown
// controller derived from it. Scan and monitor cycles read a consistent
// snapshot; until a first equity report arrives the engine declines to act.
type AccountManager struct {
	mu       sync.RWMutex
	account  models.Account
	reported bool

	dd    *risk.DrawdownController
	store repository.StateStore
	log   *logger.Logger
}

// NewAccountManager creates the manager. A persisted account restores the
// high-water mark and makes the engine immediately ready.
func NewAccountManager(dd *risk.DrawdownController, store repository.StateStore, log *logger.Logger, persisted *models.Account) *AccountManager {
	m := &AccountManager{dd: dd, store: store, log: log}
	if persisted != nil && persisted.EquityActual.IsPositive() {
		dd.Reset(persisted.EquityHighWater)
		if st, err := dd.Update(persisted.EquityActual); err == nil {
			m.account = models.Account{
				EquityActual:    persisted.EquityActual,
				EquityHighWater: dd.HighWater(),
				Drawdown:        st,
			}
			m.reported = true
		}
	}
	return m
}

// ReportEquity folds one external equity report into the drawdown state and
// persists the account.
func (m *AccountManager) ReportEquity(ctx context.Context, equity decimal.Decimal) (models.DrawdownState, error) {
	st, err := m.dd.Update(equity)
	if err != nil {
		return models.DrawdownState{}, fmt.Errorf("drawdown update: %w", err)
	}

	m.mu.Lock()
	m.account = models.Account{
		EquityActual:    equity,
		EquityHighWater: m.dd.HighWater(),
		Drawdown:        st,
	}
	m.reported = true
	snapshot := m.account
	m.mu.Unlock()

	if err := m.store.SaveAccount(ctx, &snapshot); err != nil {
		m.log.Warn("account persist failed", logger.Error(err))
	}
	return st, nil
}

// Reset re-anchors the high-water mark after a capital withdrawal or
// deposit, then treats the new equity as a fresh report.
func (m *AccountManager) Reset(ctx context.Context, equity decimal.Decimal) (models.DrawdownState, error) {
	m.dd.Reset(equity)
	return m.ReportEquity(ctx, equity)
}

// Ready reports whether an equity snapshot exists.
func (m *AccountManager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reported
}

// Snapshot returns the account state for one cycle.
func (m *AccountManager) Snapshot() models.Account {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.account
}
