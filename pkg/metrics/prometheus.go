package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	signalsTotal    *prometheus.CounterVec
	admissionsTotal *prometheus.CounterVec
	entriesTotal    *prometheus.CounterVec
	pyramidsTotal   *prometheus.CounterVec
	exitsTotal      *prometheus.CounterVec
	skipsTotal      *prometheus.CounterVec
	equity          prometheus.Gauge
	ddMultiplier    prometheus.Gauge
	openUnits       prometheus.Gauge
	cycleLatency    *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		signalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turtle_signals_total",
				Help: "Breakout signals detected",
			},
			[]string{"market", "system", "direction"},
		),
		admissionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turtle_admissions_total",
				Help: "Admission verdicts by outcome",
			},
			[]string{"verdict"},
		),
		entriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turtle_entries_total",
				Help: "Positions opened",
			},
			[]string{"market", "system"},
		),
		pyramidsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turtle_pyramids_total",
				Help: "Pyramid units added",
			},
			[]string{"market", "system"},
		),
		exitsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turtle_exits_total",
				Help: "Positions closed by exit reason",
			},
			[]string{"market", "system", "reason"},
		),
		skipsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "turtle_market_skips_total",
				Help: "Markets skipped for a cycle",
			},
			[]string{"reason"},
		),
		equity: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "turtle_equity_actual",
			Help: "Last reported account equity",
		}),
		ddMultiplier: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "turtle_drawdown_multiplier",
			Help: "Current notional equity multiplier",
		}),
		openUnits: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "turtle_open_units",
			Help: "Total units across open positions",
		}),
		cycleLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "turtle_cycle_duration_seconds",
				Help:    "Duration of scan and monitor cycles",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
	}
}

func (r *Recorder) RecordSignal(market, system, direction string) {
	r.signalsTotal.WithLabelValues(market, system, direction).Inc()
}

func (r *Recorder) RecordAdmission(verdict string) {
	r.admissionsTotal.WithLabelValues(verdict).Inc()
}

func (r *Recorder) RecordEntry(market, system string) {
	r.entriesTotal.WithLabelValues(market, system).Inc()
}

func (r *Recorder) RecordPyramid(market, system string) {
	r.pyramidsTotal.WithLabelValues(market, system).Inc()
}

func (r *Recorder) RecordExit(market, system, reason string) {
	r.exitsTotal.WithLabelValues(market, system, reason).Inc()
}

func (r *Recorder) RecordMarketSkip(reason string) {
	r.skipsTotal.WithLabelValues(reason).Inc()
}

func (r *Recorder) RecordEquity(equity, multiplier float64) {
	r.equity.Set(equity)
	r.ddMultiplier.Set(multiplier)
}

func (r *Recorder) RecordOpenUnits(count int) {
	r.openUnits.Set(float64(count))
}

func (r *Recorder) RecordCycleLatency(op string, seconds float64) {
	r.cycleLatency.WithLabelValues(op).Observe(seconds)
}
