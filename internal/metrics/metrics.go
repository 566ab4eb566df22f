// Package metrics exposes prometheus instrumentation for the exchange.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vadiminshakov/kxmarket/internal/domain"
)

// Metrics holds all prometheus collectors of the exchange.
type Metrics struct {
	registry *prometheus.Registry

	TicksTotal      prometheus.Counter
	IndexValue      prometheus.Gauge
	InstrumentPrice *prometheus.GaugeVec // labels: ticker

	TradesTotal   *prometheus.CounterVec // labels: side
	RejectsTotal  *prometheus.CounterVec // labels: side, reason
	FeesCollected prometheus.Counter
	CashBalance   prometheus.Gauge

	StreamDrops *prometheus.CounterVec // labels: stream
}

// New creates the collectors and registers them on a dedicated registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kx_ticks_total",
			Help: "Total simulation ticks applied",
		}),
		IndexValue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kx_index_value",
			Help: "Current capitalization-weighted market index",
		}),
		InstrumentPrice: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "kx_instrument_price",
			Help: "Current instrument price in the primary currency",
		}, []string{"ticker"}),
		TradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kx_trades_total",
			Help: "Executed trades by side",
		}, []string{"side"}),
		RejectsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kx_trade_rejects_total",
			Help: "Rejected trades by side and reason",
		}, []string{"side", "reason"}),
		FeesCollected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kx_fees_collected_total",
			Help: "Commission charged on executed trades",
		}),
		CashBalance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kx_cash_balance",
			Help: "Ledger cash balance after the last trade",
		}),
		StreamDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kx_stream_drops_total",
			Help: "Events not delivered to slow stream subscribers",
		}, []string{"stream"}),
	}

	m.registry.MustRegister(
		m.TicksTotal,
		m.IndexValue,
		m.InstrumentPrice,
		m.TradesTotal,
		m.RejectsTotal,
		m.FeesCollected,
		m.CashBalance,
		m.StreamDrops,
		collectors.NewGoCollector(),
	)

	return m
}

// ObserveTick records a committed tick.
func (m *Metrics) ObserveTick(s domain.MarketSnapshot) {
	m.TicksTotal.Inc()
	m.IndexValue.Set(s.Index)
	for _, inst := range s.Instruments {
		m.InstrumentPrice.WithLabelValues(inst.Ticker).Set(inst.CurrentPrice)
	}
}

// ObserveTrade records an executed trade with its fee and the resulting cash balance.
func (m *Metrics) ObserveTrade(side domain.Side, fee, cash float64) {
	m.TradesTotal.WithLabelValues(string(side)).Inc()
	m.FeesCollected.Add(fee)
	m.CashBalance.Set(cash)
}

// ObserveReject records a rejected trade.
func (m *Metrics) ObserveReject(side domain.Side, reason string) {
	m.RejectsTotal.WithLabelValues(string(side), reason).Inc()
}

// ObserveDrops records events missed by slow subscribers of a stream.
func (m *Metrics) ObserveDrops(stream string, n int) {
	if n > 0 {
		m.StreamDrops.WithLabelValues(stream).Add(float64(n))
	}
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
