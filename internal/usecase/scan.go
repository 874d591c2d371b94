package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bwight-dev/turtle-trader-sub001/internal/domain/models"
	"github.com/bwight-dev/turtle-trader-sub001/internal/domain/repository"
	"github.com/bwight-dev/turtle-trader-sub001/internal/engine/admission"
	"github.com/bwight-dev/turtle-trader-sub001/internal/engine/channel"
	"github.com/bwight-dev/turtle-trader-sub001/internal/engine/position"
	"github.com/bwight-dev/turtle-trader-sub001/internal/engine/volatility"
	"github.com/bwight-dev/turtle-trader-sub001/pkg/logger"
)

// MarketSpec is the per-market static configuration the engine needs.
type MarketSpec struct {
	PointValue decimal.Decimal
	Group      string
}

// Scan is the once-daily entry scan: fold the day's bars into volatility
// and channel state, detect breakouts, gate them through admission, and
// open positions for confirmed fills.
type Scan struct {
	tracker  *volatility.Tracker
	detector *channel.Detector
	pipeline *admission.Pipeline
	machine  *position.Machine
	registry *Registry
	accounts *AccountManager
	store    repository.StateStore
	gateway  repository.ExecutionGateway
	auditor  *Auditor
	metrics  repository.Metrics
	log      *logger.Logger
	markets  map[string]MarketSpec

	// entryOnClose selects the entry convention: detect breakouts on the
	// bar's close, or on any intraday touch of the channel (the bar's range).
	entryOnClose bool
}

// NewScan wires the daily scan.
func NewScan(
	tracker *volatility.Tracker,
	detector *channel.Detector,
	pipeline *admission.Pipeline,
	machine *position.Machine,
	registry *Registry,
	accounts *AccountManager,
	store repository.StateStore,
	gateway repository.ExecutionGateway,
	auditor *Auditor,
	metrics repository.Metrics,
	log *logger.Logger,
	markets map[string]MarketSpec,
	entryOnClose bool,
) *Scan {
	return &Scan{
		tracker:      tracker,
		detector:     detector,
		pipeline:     pipeline,
		machine:      machine,
		registry:     registry,
		accounts:     accounts,
		store:        store,
		gateway:      gateway,
		auditor:      auditor,
		metrics:      metrics,
		log:          log,
		markets:      markets,
		entryOnClose: entryOnClose,
	}
}

// Run processes one day's finalized bars, one per market. Markets are
// evaluated in parallel; admissions are serialized so the cap checks see a
// consistent portfolio. Without an equity snapshot the scan declines to act.
func (s *Scan) Run(ctx context.Context, bars []models.Bar) error {
	started := time.Now()
	defer func() {
		s.metrics.RecordCycleLatency("scan", time.Since(started).Seconds())
	}()

	if !s.accounts.Ready() {
		return fmt.Errorf("%w: no equity snapshot for scan", models.ErrInconsistentState)
	}
	account := s.accounts.Snapshot()
	notional := account.NotionalEquity()

	// Phase 1: per-market state update and detection, in parallel. Signals
	// are detected against yesterday's channels before today's bar joins
	// the window.
	type detected struct {
		bar models.Bar
		res channel.Result
	}
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		signals []detected
	)
	for _, bar := range bars {
		if _, ok := s.markets[bar.Market]; !ok {
			s.log.Warn("bar for unconfigured market", logger.String("market", bar.Market))
			continue
		}
		wg.Add(1)
		go func(bar models.Bar) {
			defer wg.Done()
			res, err := s.updateAndDetect(ctx, bar)
			if err != nil {
				return
			}
			if res.S1 != nil || res.S2 != nil {
				mu.Lock()
				signals = append(signals, detected{bar: bar, res: res})
				mu.Unlock()
			}
		}(bar)
	}
	wg.Wait()

	// Phase 2: admission, serialized.
	for _, det := range signals {
		for _, sig := range []*models.Signal{det.res.S1, det.res.S2} {
			if sig == nil {
				continue
			}
			s.admitAndOpen(ctx, *sig, det.bar, notional)
		}
	}
	s.metrics.RecordOpenUnits(s.registry.TotalUnits())
	return nil
}

func (s *Scan) updateAndDetect(ctx context.Context, bar models.Bar) (channel.Result, error) {
	var (
		res channel.Result
		err error
	)
	if s.entryOnClose {
		res, err = s.detector.Detect(bar.Market, bar.Close, bar.Date)
	} else {
		res, err = s.detector.DetectRange(bar.Market, bar.High, bar.Low, bar.Date)
	}
	if err != nil && !errors.Is(err, models.ErrInsufficientHistory) {
		s.log.Error("detect failed", logger.String("market", bar.Market), logger.Error(err))
	}
	insufficient := errors.Is(err, models.ErrInsufficientHistory)

	if _, uerr := s.tracker.Update(bar); uerr != nil {
		s.log.Error("volatility update failed", logger.String("market", bar.Market), logger.Error(uerr))
		s.auditor.Emit(ctx, models.AuditMarketSkip, models.Signal{Market: bar.Market}, uerr.Error(), nil)
		s.metrics.RecordMarketSkip("volatility_error")
		return channel.Result{}, uerr
	}
	s.detector.Append(bar)

	if insufficient || !s.tracker.Ready(bar.Market) {
		// Not yet tradeable; more history accumulates next cycle.
		s.metrics.RecordMarketSkip("insufficient_history")
		return channel.Result{}, models.ErrInsufficientHistory
	}
	return res, nil
}

func (s *Scan) admitAndOpen(ctx context.Context, sig models.Signal, bar models.Bar, notional decimal.Decimal) {
	spec := s.markets[sig.Market]
	s.metrics.RecordSignal(sig.Market, string(sig.System), string(sig.Direction))
	s.auditor.Emit(ctx, models.AuditSignal, sig, "", map[string]string{
		"trigger_price": sig.TriggerPrice.String(),
		"close":         bar.Close.String(),
	})

	n, err := s.tracker.N(sig.Market)
	if err != nil {
		s.metrics.RecordMarketSkip("insufficient_history")
		return
	}

	unlock := s.registry.LockKey(sig.Market)
	defer unlock()

	verdict := s.pipeline.Admit(sig, s.registry.Open(), bar.Close, n, notional, spec.PointValue)
	if !verdict.Admitted {
		s.metrics.RecordAdmission(string(verdict.Reason))
		s.auditor.Emit(ctx, models.AuditAdmission, sig, string(verdict.Reason), sizingDetail(verdict.Sizing))
		if verdict.Reason == models.RejectZeroSize {
			// Expected for small accounts on volatile markets; logged apart
			// from portfolio-limit rejections.
			s.log.Info("unit size truncated to zero",
				logger.String("market", sig.Market),
				logger.Decimal("n", n),
				logger.Decimal("notional_equity", notional))
		}
		return
	}
	s.metrics.RecordAdmission("ADMITTED")
	s.auditor.Emit(ctx, models.AuditAdmission, sig, "ADMITTED", sizingDetail(verdict.Sizing))

	intent := models.OrderIntent{
		Market:    sig.Market,
		System:    sig.System,
		Direction: sig.Direction,
		Kind:      models.IntentEntry,
		Units:     verdict.Sizing.Units,
		OrderType: models.OrderMarket,
	}
	report, err := s.gateway.Submit(ctx, intent)
	if err != nil || report.Status != models.ExecFilled {
		reason := execFailReason(report, err)
		s.auditor.Emit(ctx, models.AuditExecFail, sig, reason, nil)
		s.log.Warn("entry not filled", logger.String("market", sig.Market), logger.String("reason", reason))
		return
	}

	p := s.machine.OpenPosition(sig, *verdict.Sizing, report.Price, report.Time)
	s.registry.Put(p)
	if err := s.store.SavePosition(ctx, p); err != nil {
		s.log.Error("position persist failed", logger.String("key", p.Key()), logger.Error(err))
	}
	s.metrics.RecordEntry(sig.Market, string(sig.System))
	s.auditor.Emit(ctx, models.AuditEntry, sig, "", mergeDetail(sizingDetail(verdict.Sizing), map[string]string{
		"fill_price": report.Price.String(),
		"stop":       p.CurrentStop.String(),
	}))
	s.log.Info("position opened",
		logger.String("market", sig.Market),
		logger.String("system", string(sig.System)),
		logger.String("direction", string(sig.Direction)),
		logger.Int64("units", verdict.Sizing.Units),
		logger.Decimal("fill", report.Price),
		logger.Decimal("stop", p.CurrentStop))
}
