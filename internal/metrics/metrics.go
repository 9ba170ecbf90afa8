// Package metrics exposes cycle, order and portfolio metrics in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeOK      = "ok"
	OutcomePartial = "partial"
	OutcomeFailed  = "failed"
)

// Metrics owns its registry so several instances can coexist (tests, one-shot runs).
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	CyclesTotal    *prometheus.CounterVec // labels: outcome
	OrdersTotal    *prometheus.CounterVec // labels: side
	SkippedTotal   *prometheus.CounterVec // labels: side, reason
	PortfolioValue prometheus.Gauge
	Cash           prometheus.Gauge
	Volatility     prometheus.Gauge
	Positions      prometheus.Gauge
	WeeklyTradeDue prometheus.Gauge
	CycleDuration  prometheus.Histogram
}

// New registers and returns all metrics.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "salgsmester_cycles_total",
			Help: "Trading cycles run, by outcome",
		}, []string{"outcome"}),
		OrdersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "salgsmester_orders_total",
			Help: "Orders placed and booked, by side",
		}, []string{"side"}),
		SkippedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "salgsmester_skipped_actions_total",
			Help: "Trades dropped before order placement, by side and reason",
		}, []string{"side", "reason"}),
		PortfolioValue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "salgsmester_portfolio_value_nok",
			Help: "Cash plus market value of positions after the last cycle",
		}),
		Cash: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "salgsmester_cash_nok",
			Help: "Cash after the last cycle",
		}),
		Volatility: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "salgsmester_portfolio_volatility",
			Help: "Fee-aware weighted portfolio volatility after the last cycle",
		}),
		Positions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "salgsmester_open_positions",
			Help: "Open positions after the last cycle",
		}),
		WeeklyTradeDue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "salgsmester_weekly_trade_due",
			Help: "1 when the portfolio has gone a week without a trade",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "salgsmester_cycle_duration_seconds",
			Help:    "Wall time of one trading cycle",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
	}

	m.registry.MustRegister(
		m.CyclesTotal,
		m.OrdersTotal,
		m.SkippedTotal,
		m.PortfolioValue,
		m.Cash,
		m.Volatility,
		m.Positions,
		m.WeeklyTradeDue,
		m.CycleDuration,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteTextfile dumps the registry for the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) CycleFinished(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.CyclesTotal.WithLabelValues(outcome).Inc()
	m.CycleDuration.Observe(d.Seconds())
}

func (m *Metrics) OrderPlaced(side string) {
	if m == nil {
		return
	}
	m.OrdersTotal.WithLabelValues(side).Inc()
}

func (m *Metrics) ActionSkipped(side, reason string) {
	if m == nil {
		return
	}
	m.SkippedTotal.WithLabelValues(side, reason).Inc()
}

func (m *Metrics) ObservePortfolio(value, cash, volatility float64, positions int) {
	if m == nil {
		return
	}
	m.PortfolioValue.Set(value)
	m.Cash.Set(cash)
	m.Volatility.Set(volatility)
	m.Positions.Set(float64(positions))
}

func (m *Metrics) ObserveWeeklyTradeDue(due bool) {
	if m == nil {
		return
	}
	v := 0.0
	if due {
		v = 1
	}
	m.WeeklyTradeDue.Set(v)
}
