// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	// Provider metrics
	FetchesTotal     *prometheus.CounterVec
	FetchErrors      *prometheus.CounterVec
	SnapshotsFetched *prometheus.CounterVec
	RecordsSkipped   *prometheus.CounterVec
	FetchLatency     *prometheus.HistogramVec

	// Scan cycle metrics
	CyclesTotal    *prometheus.CounterVec
	CycleDuration  *prometheus.HistogramVec
	PairsFiltered  *prometheus.CounterVec
	PairsScored    *prometheus.CounterVec
	TrackedPairs   *prometheus.GaugeVec
	HistoryWindows *prometheus.GaugeVec

	// Alert metrics
	AlertsEmitted     *prometheus.CounterVec
	AlertsSuppressed  *prometheus.CounterVec
	AlertsDropped     *prometheus.CounterVec
	DispatchErrors    *prometheus.CounterVec
	ScoreDistribution *prometheus.HistogramVec

	// Health metrics
	LastSuccessfulCycle *prometheus.GaugeVec
}

// NewMetrics creates a Metrics instance with all metrics registered on
// the given registerer. A nil registerer uses the default registry.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "pairscan"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Provider metrics
		FetchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "fetches_total",
			Help:      "Total number of provider fetches by adapter and chain",
		}, []string{"adapter", "chain"}),
		FetchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "fetch_errors_total",
			Help:      "Total number of failed provider fetches by adapter and chain",
		}, []string{"adapter", "chain"}),
		SnapshotsFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "snapshots_fetched_total",
			Help:      "Total number of snapshots returned by providers",
		}, []string{"adapter", "chain"}),
		RecordsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "records_skipped_total",
			Help:      "Total number of malformed or invalid records skipped",
		}, []string{"profile"}),
		FetchLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "fetch_latency_seconds",
			Help:      "Provider fetch latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"adapter"}),

		// Scan cycle metrics
		CyclesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "cycles_total",
			Help:      "Total number of scan cycles by profile and status",
		}, []string{"profile", "status"}),
		CycleDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "cycle_duration_seconds",
			Help:      "Scan cycle duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"profile"}),
		PairsFiltered: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "pairs_filtered_total",
			Help:      "Total number of pairs rejected by filter stage",
		}, []string{"profile", "stage"}),
		PairsScored: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "pairs_scored_total",
			Help:      "Total number of pairs that passed all filters and were scored",
		}, []string{"profile"}),
		TrackedPairs: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "tracked_pairs",
			Help:      "Number of pairs with alert records in memory",
		}, []string{"profile"}),
		HistoryWindows: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "history_windows",
			Help:      "Number of per-pair history windows held by the session",
		}, []string{"profile"}),

		// Alert metrics
		AlertsEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alert",
			Name:      "emitted_total",
			Help:      "Total number of alerts emitted",
		}, []string{"profile", "category"}),
		AlertsSuppressed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alert",
			Name:      "suppressed_total",
			Help:      "Total number of alerts suppressed by cooldown or score delta",
		}, []string{"profile"}),
		AlertsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alert",
			Name:      "dropped_total",
			Help:      "Total number of alerts dropped on dispatch queue overflow",
		}, []string{"profile"}),
		DispatchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alert",
			Name:      "dispatch_errors_total",
			Help:      "Total number of failed sink deliveries",
		}, []string{"sink"}),
		ScoreDistribution: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "alert",
			Name:      "score_distribution",
			Help:      "Distribution of final scores for scored pairs",
			Buckets:   []float64{10, 20, 30, 40, 50, 55, 60, 70, 80, 90, 100},
		}, []string{"profile"}),

		// Health metrics
		LastSuccessfulCycle: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_cycle_timestamp",
			Help:      "Unix timestamp of the last completed scan cycle",
		}, []string{"profile"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
