// Package server owns the application lifecycle: history warmup, the live
// tick loop, the monitor ticker, the daily scan timer, the HTTP surface,
// and graceful shutdown.
package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/bwight-dev/turtle-trader-sub001/internal/domain/models"
	"github.com/bwight-dev/turtle-trader-sub001/internal/domain/repository"
	"github.com/bwight-dev/turtle-trader-sub001/internal/engine/channel"
	"github.com/bwight-dev/turtle-trader-sub001/internal/engine/volatility"
	"github.com/bwight-dev/turtle-trader-sub001/internal/handler/api"
	"github.com/bwight-dev/turtle-trader-sub001/internal/middleware"
	"github.com/bwight-dev/turtle-trader-sub001/internal/service/marketdata"
	"github.com/bwight-dev/turtle-trader-sub001/internal/usecase"
	"github.com/bwight-dev/turtle-trader-sub001/pkg/config"
	xhttp "github.com/bwight-dev/turtle-trader-sub001/pkg/http"
	applogger "github.com/bwight-dev/turtle-trader-sub001/pkg/logger"
	"github.com/bwight-dev/turtle-trader-sub001/pkg/util"
)

// App encapsulates the engine's runtime.
type App struct {
	cfg      *config.Config
	log      *applogger.Logger
	tracker  *volatility.Tracker
	detector *channel.Detector
	scan     *usecase.Scan
	monitor  *usecase.Monitor
	registry *usecase.Registry
	accounts *usecase.AccountManager
	stream   repository.MarketStream
	book     *marketdata.Book
	history  *marketdata.History
	store    repository.StateStore
	sink     repository.AuditSink
	metrics  repository.Metrics

	httpServer *xhttp.Server
	scanMu     sync.Mutex
}

// New creates the App with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	tracker *volatility.Tracker,
	detector *channel.Detector,
	scan *usecase.Scan,
	monitor *usecase.Monitor,
	registry *usecase.Registry,
	accounts *usecase.AccountManager,
	stream repository.MarketStream,
	book *marketdata.Book,
	history *marketdata.History,
	store repository.StateStore,
	sink repository.AuditSink,
	metrics repository.Metrics,
) *App {
	return &App{
		cfg:      cfg,
		log:      log,
		tracker:  tracker,
		detector: detector,
		scan:     scan,
		monitor:  monitor,
		registry: registry,
		accounts: accounts,
		stream:   stream,
		book:     book,
		history:  history,
		store:    store,
		sink:     sink,
		metrics:  metrics,
	}
}

// Run starts the engine and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.warmup(ctx); err != nil {
		return err
	}

	handler := api.NewStatusHandler(a.log, a.registry, a.accounts, a.store, a.metrics, func() error {
		return a.runScan(ctx)
	})
	a.httpServer = xhttp.NewServer(handler, a.log,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithShutdownTimeout(a.cfg.Server.ShutdownTimeout),
	)
	if err := a.httpServer.Start(); err != nil {
		return err
	}

	go a.tickLoop(ctx)
	go a.monitorLoop(ctx)
	go a.scanLoop(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// warmup seeds channel and volatility state from historical daily bars so
// the engine can trade from the first live cycle instead of accumulating 55
// days of its own history.
func (a *App) warmup(ctx context.Context) error {
	if a.history == nil || a.cfg.Feed.RESTURL == "" || a.cfg.Feed.WarmupDays == 0 {
		a.log.Warn("history warmup skipped; signals need 55 live days")
		return nil
	}
	wctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	for _, m := range a.cfg.Markets {
		bars, err := a.history.DailyBars(wctx, m.Symbol, a.cfg.Feed.WarmupDays)
		if err != nil {
			// Trade the markets that warmed up; this one accumulates live.
			a.log.Error("warmup failed", applogger.String("market", m.Symbol), applogger.Error(err))
			continue
		}
		for _, bar := range bars {
			if _, err := a.tracker.Update(bar); err != nil {
				a.log.Error("warmup bar rejected",
					applogger.String("market", m.Symbol), applogger.Error(err))
				break
			}
			a.detector.Append(bar)
		}
	}
	return nil
}

// tickLoop consumes the live stream into the book, reconnecting on errors.
func (a *App) tickLoop(ctx context.Context) {
	markets := make([]string, 0, len(a.cfg.Markets))
	for _, m := range a.cfg.Markets {
		markets = append(markets, m.Symbol)
	}
	pipe := middleware.NewTickPipeline(a.book, a.metrics,
		middleware.WithMaxTicksPerSec(a.cfg.Feed.MaxTicksPerSec))

	for {
		if err := a.stream.Connect(ctx); err != nil {
			a.log.Error("feed connect failed", applogger.Error(err))
		} else if err := a.stream.Subscribe(ctx, markets); err != nil {
			a.log.Error("feed subscribe failed", applogger.Error(err))
		} else {
			ticks, errs := a.stream.Ticks(ctx)
		consume:
			for {
				select {
				case <-ctx.Done():
					return
				case tick, ok := <-ticks:
					if !ok {
						break consume
					}
					if err := pipe.Process(tick); err != nil {
						a.log.Warn("tick dropped", applogger.Error(err))
					}
				case err, ok := <-errs:
					if ok && err != nil {
						a.log.Warn("feed stream error", applogger.Error(err))
					}
					break consume
				}
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(a.cfg.Feed.ReconnectDelay):
		}
		_ = a.stream.Close()
	}
}

// monitorLoop evaluates open positions on the configured interval.
func (a *App) monitorLoop(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.Engine.MonitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.monitor.Run(ctx, a.book.Latest())
		}
	}
}

// scanLoop fires the daily scan at the configured close time.
func (a *App) scanLoop(ctx context.Context) {
	hour, minute := a.cfg.ScanClock()
	for {
		next := util.NextDailyRun(time.Now(), hour, minute)
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if err := a.runScan(ctx); err != nil {
				a.log.Warn("daily scan declined", applogger.Error(err))
			}
		}
	}
}

// runScan finalizes today's bars and runs one scan cycle. Serialized so the
// manual trigger and the timer cannot interleave.
func (a *App) runScan(ctx context.Context) error {
	a.scanMu.Lock()
	defer a.scanMu.Unlock()

	bars := a.book.CloseDay(util.TradingDate(time.Now()))
	if len(bars) == 0 {
		a.log.Warn("no bars for scan; no ticks today")
		return nil
	}
	if err := a.scan.Run(ctx, bars); err != nil {
		if errors.Is(err, models.ErrInconsistentState) {
			return err
		}
		a.log.Error("scan cycle error", applogger.Error(err))
		return err
	}
	a.log.Info("daily scan complete", applogger.Int("markets", len(bars)))
	return nil
}

// shutdown stops the HTTP surface and closes infrastructure clients.
func (a *App) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
		}
	}
	if err := a.stream.Close(); err != nil {
		a.log.Warn("feed close error", applogger.Error(err))
	}
	if err := a.sink.Close(); err != nil {
		a.log.Warn("audit sink close error", applogger.Error(err))
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("state store close error", applogger.Error(err))
	}
	a.log.Info("shutdown complete")
	return nil
}
