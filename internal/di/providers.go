// Package di wires the engine's dependency graph.
package di

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bwight-dev/turtle-trader-sub001/internal/domain/repository"
	"github.com/bwight-dev/turtle-trader-sub001/internal/engine/admission"
	"github.com/bwight-dev/turtle-trader-sub001/internal/engine/channel"
	"github.com/bwight-dev/turtle-trader-sub001/internal/engine/ledger"
	"github.com/bwight-dev/turtle-trader-sub001/internal/engine/position"
	"github.com/bwight-dev/turtle-trader-sub001/internal/engine/risk"
	"github.com/bwight-dev/turtle-trader-sub001/internal/engine/volatility"
	internalrepo "github.com/bwight-dev/turtle-trader-sub001/internal/repository"
	"github.com/bwight-dev/turtle-trader-sub001/internal/service/execution"
	"github.com/bwight-dev/turtle-trader-sub001/internal/service/marketdata"
	"github.com/bwight-dev/turtle-trader-sub001/internal/usecase"
	pkgch "github.com/bwight-dev/turtle-trader-sub001/pkg/clickhouse"
	"github.com/bwight-dev/turtle-trader-sub001/pkg/config"
	xhttp "github.com/bwight-dev/turtle-trader-sub001/pkg/http"
	pkgkafka "github.com/bwight-dev/turtle-trader-sub001/pkg/kafka"
	applogger "github.com/bwight-dev/turtle-trader-sub001/pkg/logger"
	"github.com/bwight-dev/turtle-trader-sub001/pkg/metrics"
	"github.com/bwight-dev/turtle-trader-sub001/pkg/server"
)

const bootTimeout = 10 * time.Second

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideStateStore connects the Redis state store.
func ProvideStateStore(cfg *config.Config) (repository.StateStore, error) {
	store, err := internalrepo.NewRedisStateStore(
		internalrepo.WithAddr(cfg.Redis.Addr),
		internalrepo.WithPassword(cfg.Redis.Password),
		internalrepo.WithDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("state store: %w", err)
	}
	return store, nil
}

// ProvideAuditSink creates the configured audit backend.
func ProvideAuditSink(cfg *config.Config, log *applogger.Logger) (repository.AuditSink, error) {
	switch cfg.Audit.Backend {
	case "clickhouse":
		client, err := pkgch.NewClient(
			pkgch.WithHost(cfg.ClickHouse.Host),
			pkgch.WithPort(cfg.ClickHouse.Port),
			pkgch.WithDatabase(cfg.ClickHouse.Database),
			pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
			pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
			pkgch.WithAsyncInsert(true, false),
		)
		if err != nil {
			return nil, fmt.Errorf("clickhouse client: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), bootTimeout)
		defer cancel()
		sink, err := internalrepo.NewClickHouseAuditSink(ctx, client)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		return sink, nil

	case "kafka":
		producer, err := pkgkafka.NewProducer(
			pkgkafka.WithBrokers(cfg.Kafka.Brokers),
			pkgkafka.WithCompression(cfg.Kafka.Compression),
			pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
			pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
			pkgkafka.WithWriteTimeout(cfg.Kafka.WriteTimeout),
		)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		return internalrepo.NewKafkaAuditSink(producer, cfg.Kafka.Topic), nil

	default:
		return internalrepo.NewLogAuditSink(log), nil
	}
}

// ProvideTracker creates the volatility tracker.
func ProvideTracker(cfg *config.Config) *volatility.Tracker {
	return volatility.NewTracker(cfg.Engine.VolatilityPeriod)
}

// ProvideDetector creates the channel detector.
func ProvideDetector() *channel.Detector {
	return channel.NewDetector()
}

// ProvideLedger seeds the outcome ledger from persisted outcomes.
func ProvideLedger(store repository.StateStore) (*ledger.Ledger, error) {
	ctx, cancel := context.WithTimeout(context.Background(), bootTimeout)
	defer cancel()
	outcomes, err := store.LoadOutcomes(ctx)
	if err != nil {
		return nil, fmt.Errorf("seed ledger: %w", err)
	}
	return ledger.New(outcomes), nil
}

// ProvideSizer creates the risk sizer. Config floats convert to decimal
// exactly once, here.
func ProvideSizer(cfg *config.Config) *risk.Sizer {
	return risk.NewSizer(risk.SizerConfig{
		RiskPercent:       decimal.NewFromFloat(cfg.Engine.RiskPercent),
		StopMultiplier:    decimal.NewFromFloat(cfg.Engine.StopMultiplier),
		PyramidIntervalN:  decimal.NewFromFloat(cfg.Engine.PyramidIntervalN),
		MaxUnitsPerMarket: cfg.Engine.MaxUnitsPerMarket,
	})
}

// ProvideDrawdownController creates the drawdown controller.
func ProvideDrawdownController(cfg *config.Config) *risk.DrawdownController {
	return risk.NewDrawdownController(
		decimal.NewFromFloat(cfg.Engine.DrawdownThresholdPct),
		decimal.NewFromFloat(cfg.Engine.DrawdownReductionPct),
		decimal.NewFromFloat(cfg.Engine.DrawdownFloorPct),
	)
}

// ProvideAccountManager restores the account from the state store.
func ProvideAccountManager(
	dd *risk.DrawdownController,
	store repository.StateStore,
	log *applogger.Logger,
) (*usecase.AccountManager, error) {
	ctx, cancel := context.WithTimeout(context.Background(), bootTimeout)
	defer cancel()
	persisted, err := store.LoadAccount(ctx)
	if err != nil {
		return nil, fmt.Errorf("restore account: %w", err)
	}
	return usecase.NewAccountManager(dd, store, log, persisted), nil
}

// ProvideRegistry restores open positions from the state store.
func ProvideRegistry(store repository.StateStore) (*usecase.Registry, error) {
	ctx, cancel := context.WithTimeout(context.Background(), bootTimeout)
	defer cancel()
	positions, err := store.LoadPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("restore positions: %w", err)
	}
	registry := usecase.NewRegistry()
	registry.Seed(positions)
	return registry, nil
}

// ProvidePipeline creates the admission pipeline.
func ProvidePipeline(l *ledger.Ledger, s *risk.Sizer, cfg *config.Config) *admission.Pipeline {
	groups := make(map[string]string, len(cfg.Markets))
	for _, m := range cfg.Markets {
		if m.Group != "" {
			groups[m.Symbol] = m.Group
		}
	}
	return admission.NewPipeline(l, s, admission.Config{
		MaxUnitsPerMarket: cfg.Engine.MaxUnitsPerMarket,
		MaxUnitsPerGroup:  cfg.Engine.MaxUnitsPerGroup,
		Mode:              admission.LimitMode(cfg.Engine.LimitMode),
		MaxUnitsTotal:     cfg.Engine.MaxUnitsTotal,
		MaxTotalRiskPct:   decimal.NewFromFloat(cfg.Engine.MaxTotalRiskPct),
		Groups:            groups,
	})
}

// ProvideMachine creates the position state machine.
func ProvideMachine(d *channel.Detector, s *risk.Sizer, cfg *config.Config) *position.Machine {
	return position.NewMachine(d, s, decimal.NewFromFloat(cfg.Engine.LoserToleranceN))
}

// ProvideMarketSpecs builds the per-market static specs.
func ProvideMarketSpecs(cfg *config.Config) map[string]usecase.MarketSpec {
	specs := make(map[string]usecase.MarketSpec, len(cfg.Markets))
	for _, m := range cfg.Markets {
		specs[m.Symbol] = usecase.MarketSpec{
			PointValue: decimal.NewFromFloat(m.PointValue),
			Group:      m.Group,
		}
	}
	return specs
}

// ProvideBook creates the live price book.
func ProvideBook() *marketdata.Book {
	return marketdata.NewBook()
}

// ProvideMarketStream creates the WebSocket market data client.
func ProvideMarketStream(cfg *config.Config, log *applogger.Logger) repository.MarketStream {
	return marketdata.New(
		cfg.Feed.APIKey,
		cfg.Feed.URL,
		cfg.Feed.ReconnectDelay,
		cfg.Feed.PingInterval,
		log,
	)
}

// ProvideHistory creates the REST history fetcher, or nil when no REST URL
// is configured.
func ProvideHistory(cfg *config.Config, log *applogger.Logger) *marketdata.History {
	if cfg.Feed.RESTURL == "" {
		return nil
	}
	client := xhttp.NewClient(xhttp.WithTimeout(30 * time.Second))
	return marketdata.NewHistory(client, cfg.Feed.RESTURL, cfg.Feed.APIKey, log)
}

// ProvideExecutionGateway creates the configured gateway. Paper is the only
// mode; the interface is where a live broker adapter would plug in.
func ProvideExecutionGateway(book *marketdata.Book, cfg *config.Config, log *applogger.Logger) repository.ExecutionGateway {
	return execution.NewPaperGateway(book, decimal.NewFromFloat(cfg.Execution.SlippageBps), log)
}

// ProvideAuditor creates the run-scoped auditor.
func ProvideAuditor(sink repository.AuditSink, log *applogger.Logger) *usecase.Auditor {
	return usecase.NewAuditor(sink, log)
}

// ProvideScan creates the daily scan use case.
func ProvideScan(
	tracker *volatility.Tracker,
	detector *channel.Detector,
	pipeline *admission.Pipeline,
	machine *position.Machine,
	registry *usecase.Registry,
	accounts *usecase.AccountManager,
	store repository.StateStore,
	gateway repository.ExecutionGateway,
	auditor *usecase.Auditor,
	m repository.Metrics,
	log *applogger.Logger,
	specs map[string]usecase.MarketSpec,
	cfg *config.Config,
) *usecase.Scan {
	return usecase.NewScan(tracker, detector, pipeline, machine, registry, accounts, store, gateway, auditor, m, log, specs, cfg.Engine.EntryOnClose)
}

// ProvideMonitor creates the monitor use case.
func ProvideMonitor(
	tracker *volatility.Tracker,
	machine *position.Machine,
	registry *usecase.Registry,
	accounts *usecase.AccountManager,
	outcomes *ledger.Ledger,
	store repository.StateStore,
	gateway repository.ExecutionGateway,
	auditor *usecase.Auditor,
	m repository.Metrics,
	log *applogger.Logger,
	specs map[string]usecase.MarketSpec,
) *usecase.Monitor {
	return usecase.NewMonitor(tracker, machine, registry, accounts, outcomes, store, gateway, auditor, m, log, specs)
}

// ProvideApp creates the application.
func ProvideApp(
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
	m repository.Metrics,
) *server.App {
	return server.New(cfg, log, tracker, detector, scan, monitor, registry, accounts, stream, book, history, store, sink, m)
}
