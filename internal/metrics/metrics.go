package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Strategy run outcomes used as the "outcome" label.
const (
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
	OutcomePanicked = "panic"
)

// Metrics holds the Prometheus collectors for one bot. All methods are safe on a nil
// receiver so components can run without metrics wired in.
type Metrics struct {
	registry *prometheus.Registry

	Ticks           prometheus.Counter
	SkippedTicks    prometheus.Counter
	StrategyRuns    *prometheus.CounterVec // labels: outcome
	RefreshFailures *prometheus.CounterVec // labels: indicator
	CancelFailures  prometheus.Counter
	FeedReconnects  prometheus.Counter
	Trading         prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_ticks_total",
			Help: "Total scheduler ticks delivered",
		}),
		SkippedTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_ticks_skipped_total",
			Help: "Ticks skipped because the previous strategy run was still busy",
		}),
		StrategyRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_strategy_runs_total",
			Help: "Completed strategy runs by outcome",
		}, []string{"outcome"}),
		RefreshFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_indicator_refresh_failures_total",
			Help: "Failed indicator refreshes by indicator",
		}, []string{"indicator"}),
		CancelFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_cancel_failures_total",
			Help: "Failed cancel order and cancel all orders requests",
		}),
		FeedReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_feed_reconnects_total",
			Help: "Live feed resubscriptions after a stream closed",
		}),
		Trading: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bot_trading",
			Help: "1 while the scheduler is trading, 0 otherwise",
		}),
	}

	m.registry.MustRegister(
		m.Ticks,
		m.SkippedTicks,
		m.StrategyRuns,
		m.RefreshFailures,
		m.CancelFailures,
		m.FeedReconnects,
		m.Trading,
	)

	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}) //nolint:exhaustruct // defaults are fine
}

func (m *Metrics) ObserveTick() {
	if m == nil {
		return
	}
	m.Ticks.Inc()
}

func (m *Metrics) ObserveSkippedTick() {
	if m == nil {
		return
	}
	m.SkippedTicks.Inc()
}

func (m *Metrics) ObserveStrategyRun(outcome string) {
	if m == nil {
		return
	}
	m.StrategyRuns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRefreshFailure(indicator string) {
	if m == nil {
		return
	}
	m.RefreshFailures.WithLabelValues(indicator).Inc()
}

func (m *Metrics) ObserveCancelFailure() {
	if m == nil {
		return
	}
	m.CancelFailures.Inc()
}

func (m *Metrics) ObserveFeedReconnect() {
	if m == nil {
		return
	}
	m.FeedReconnects.Inc()
}

// SetTrading records the trading flag.
func (m *Metrics) SetTrading(trading bool) {
	if m == nil {
		return
	}
	if trading {
		m.Trading.Set(1)
	} else {
		m.Trading.Set(0)
	}
}
