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
	// Tick metrics
	TicksTotal   *prometheus.CounterVec
	TickDuration prometheus.Histogram

	// Poller metrics
	PollerErrors *prometheus.CounterVec
	PollerRuns   *prometheus.CounterVec

	// Event metrics
	EventsPublished *prometheus.CounterVec
	EventsDeduped   *prometheus.CounterVec

	// Chain scan metrics
	LogsScanned  *prometheus.CounterVec
	ScanHead     *prometheus.GaugeVec
	ScanProgress *prometheus.GaugeVec

	// Health metrics
	LastSuccessfulTick prometheus.Gauge
	DedupeKeysHeld     *prometheus.GaugeVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "kaspa_market_watch"
	}

	return &Metrics{
		TicksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "ticks_total",
			Help:      "Total number of ingestion ticks by trigger reason",
		}, []string{"reason"}),
		TickDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "tick_duration_seconds",
			Help:      "Ingestion tick duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		PollerErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "errors_total",
			Help:      "Total number of poller failures by source",
		}, []string{"poller"}),
		PollerRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "runs_total",
			Help:      "Total number of poller runs by source",
		}, []string{"poller"}),

		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of events published by kind",
		}, []string{"kind"}),
		EventsDeduped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "deduped_total",
			Help:      "Total number of events suppressed as already seen",
		}, []string{"source"}),

		LogsScanned: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "logs_scanned_total",
			Help:      "Total number of swap logs fetched by exchange",
		}, []string{"dex"}),
		ScanHead: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "head_block",
			Help:      "Latest chain head observed by exchange",
		}, []string{"dex"}),
		ScanProgress: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "cursor_block",
			Help:      "Last fully scanned block by exchange",
		}, []string{"dex"}),

		LastSuccessfulTick: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_tick_timestamp",
			Help:      "Unix timestamp of last completed tick",
		}),
		DedupeKeysHeld: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "dedupe_keys_held",
			Help:      "Number of dedupe keys currently retained by map",
		}, []string{"map"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordTick increments the tick counter for a trigger reason.
func RecordTick(reason string, durationSeconds float64) {
	DefaultMetrics.TicksTotal.WithLabelValues(reason).Inc()
	DefaultMetrics.TickDuration.Observe(durationSeconds)
}

// RecordPollerRun records one poller execution, counting the failure if any.
func RecordPollerRun(poller string, err error) {
	DefaultMetrics.PollerRuns.WithLabelValues(poller).Inc()
	if err != nil {
		DefaultMetrics.PollerErrors.WithLabelValues(poller).Inc()
	}
}

// RecordEventPublished increments the published events counter.
func RecordEventPublished(kind string) {
	DefaultMetrics.EventsPublished.WithLabelValues(kind).Inc()
}

// RecordEventDeduped increments the suppressed events counter.
func RecordEventDeduped(source string) {
	DefaultMetrics.EventsDeduped.WithLabelValues(source).Inc()
}

// RecordScan updates chain scan progress for one exchange.
func RecordScan(dex string, head, cursor uint64, logs int) {
	DefaultMetrics.ScanHead.WithLabelValues(dex).Set(float64(head))
	DefaultMetrics.ScanProgress.WithLabelValues(dex).Set(float64(cursor))
	DefaultMetrics.LogsScanned.WithLabelValues(dex).Add(float64(logs))
}

// RecordTickCompleted updates the last successful tick timestamp.
func RecordTickCompleted(unix int64) {
	DefaultMetrics.LastSuccessfulTick.Set(float64(unix))
}

// RecordDedupeSizes updates the retained dedupe key gauges.
func RecordDedupeSizes(sales, tokenTrades, dexTrades int) {
	DefaultMetrics.DedupeKeysHeld.WithLabelValues("sales").Set(float64(sales))
	DefaultMetrics.DedupeKeysHeld.WithLabelValues("tokenTrades").Set(float64(tokenTrades))
	DefaultMetrics.DedupeKeysHeld.WithLabelValues("dexTrades").Set(float64(dexTrades))
}
