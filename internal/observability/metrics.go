// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Cycle metrics
	CyclesTotal   *prometheus.CounterVec
	CycleDuration prometheus.Histogram
	AgentsUpdated prometheus.Gauge
	AgentsSkipped prometheus.Counter

	// Ingestion metrics
	TradesDecoded   *prometheus.CounterVec
	TradesStored    prometheus.Counter
	TxsFetched      prometheus.Counter
	RPCErrors       *prometheus.CounterVec
	SignaturesListed prometheus.Counter

	// Pricing metrics
	PriceLookups *prometheus.CounterVec

	// API metrics
	WebhooksReceived prometheus.Counter

	// Health metrics
	LastSuccessfulCycle prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "agentscan"
	}

	return &Metrics{
		CyclesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "builder",
			Name:      "cycles_total",
			Help:      "Total number of leaderboard build cycles by status",
		}, []string{"status"}),
		CycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "builder",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of leaderboard build cycles",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		AgentsUpdated: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "builder",
			Name:      "agents_updated",
			Help:      "Number of agents refreshed in the last cycle",
		}),
		AgentsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "builder",
			Name:      "agents_skipped_total",
			Help:      "Total number of agents skipped due to fetch failures",
		}),
		TradesDecoded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "trades_decoded_total",
			Help:      "Total number of swaps decoded by DEX",
		}, []string{"dex"}),
		TradesStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "trades_stored_total",
			Help:      "Total number of new trades persisted",
		}),
		TxsFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "transactions_fetched_total",
			Help:      "Total number of parsed transactions fetched",
		}),
		RPCErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "rpc_errors_total",
			Help:      "Total number of RPC errors by kind",
		}, []string{"kind"}),
		SignaturesListed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "signatures_listed_total",
			Help:      "Total number of signatures listed for agents",
		}),
		PriceLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "lookups_total",
			Help:      "Total number of price lookups by provider and result",
		}, []string{"provider", "result"}),
		WebhooksReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "webhooks_received_total",
			Help:      "Total number of webhook payloads acknowledged",
		}),
		LastSuccessfulCycle: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_cycle_timestamp",
			Help:      "Unix timestamp of last successful build cycle",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordCycle records a finished build cycle.
func RecordCycle(status string, seconds float64) {
	DefaultMetrics.CyclesTotal.WithLabelValues(status).Inc()
	DefaultMetrics.CycleDuration.Observe(seconds)
}

// RecordTradeDecoded increments the decoded-trade counter for a DEX.
func RecordTradeDecoded(dex string) {
	DefaultMetrics.TradesDecoded.WithLabelValues(dex).Inc()
}

// RecordTradesStored adds newly persisted trades.
func RecordTradesStored(n int) {
	DefaultMetrics.TradesStored.Add(float64(n))
}

// RecordTxFetched increments the fetched-transaction counter.
func RecordTxFetched() {
	DefaultMetrics.TxsFetched.Inc()
}

// RecordRPCError records an RPC failure by kind.
func RecordRPCError(kind string) {
	DefaultMetrics.RPCErrors.WithLabelValues(kind).Inc()
}

// RecordPriceLookup records a price lookup outcome.
func RecordPriceLookup(provider, result string) {
	DefaultMetrics.PriceLookups.WithLabelValues(provider, result).Inc()
}

// RecordWebhook increments the webhook ack counter.
func RecordWebhook() {
	DefaultMetrics.WebhooksReceived.Inc()
}
