// Package metrics provides Prometheus metrics for the tracker.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Metrics holds all Prometheus metrics of the service.
// A nil *Metrics is valid and records nothing, so components can be built without a registry in tests.
type Metrics struct {
	// Cycle metrics
	CyclesTotal      *prometheus.CounterVec
	CycleDuration    prometheus.Histogram
	WalletsRefetched *prometheus.GaugeVec
	LedgerTokens     prometheus.Gauge
	UnresolvedTokens prometheus.Gauge

	// Upstream metrics
	UpstreamRetries *prometheus.CounterVec

	// Portfolio metrics
	PortfolioValue prometheus.Gauge
	ChainValue     *prometheus.GaugeVec

	// Health metrics
	LastSuccessfulCycle prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered on reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "balance_tracker"
	}
	factory := promauto.With(reg)

	return &Metrics{
		CyclesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "runs_total",
			Help:      "Total number of polling cycles by status",
		}, []string{"status"}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "duration_seconds",
			Help:      "Duration of a polling cycle",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		WalletsRefetched: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "wallets_refetched",
			Help:      "EVM wallets flagged for token refetch in the last cycle",
		}, []string{"chain"}),
		LedgerTokens: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "tokens",
			Help:      "Number of token entries in the current ledger",
		}),
		UnresolvedTokens: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "unresolved_tokens",
			Help:      "Tokens without a fresh price after all retries in the last cycle",
		}),
		UpstreamRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "retries_total",
			Help:      "Retried upstream requests by source and status",
		}, []string{"source", "status"}),
		PortfolioValue: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "value_usd",
			Help:      "Total real value of the portfolio in USD",
		}),
		ChainValue: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "chain_value_usd",
			Help:      "Real value held per chain in USD",
		}, []string{"chain"}),
		LastSuccessfulCycle: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_cycle_timestamp",
			Help:      "Unix time of the last successful cycle",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint of the given gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// RecordCycle records the outcome of one cycle.
func (m *Metrics) RecordCycle(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.CyclesTotal.WithLabelValues(status).Inc()
	m.CycleDuration.Observe(d.Seconds())
	if status == "ok" {
		m.LastSuccessfulCycle.SetToCurrentTime()
	}
}

// RecordRetry counts one retried upstream request.
func (m *Metrics) RecordRetry(source, status string) {
	if m == nil {
		return
	}
	m.UpstreamRetries.WithLabelValues(source, status).Inc()
}

// RecordRefetch sets the number of wallets refetched per chain.
func (m *Metrics) RecordRefetch(flagged map[string][]string) {
	if m == nil {
		return
	}
	for chain, wallets := range flagged {
		m.WalletsRefetched.WithLabelValues(chain).Set(float64(len(wallets)))
	}
}

// RecordLedger updates the ledger and portfolio gauges.
func (m *Metrics) RecordLedger(tokens, unresolved int, total decimal.Decimal, byChain map[string]decimal.Decimal) {
	if m == nil {
		return
	}
	m.LedgerTokens.Set(float64(tokens))
	m.UnresolvedTokens.Set(float64(unresolved))
	m.PortfolioValue.Set(total.InexactFloat64())
	for chain, value := range byChain {
		m.ChainValue.WithLabelValues(chain).Set(value.InexactFloat64())
	}
}
