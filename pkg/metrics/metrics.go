package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	CyclesTotal        *prometheus.CounterVec // outcome: completed, fetch_failed, skipped
	CycleDuration      prometheus.Histogram
	ListingsTotal      *prometheus.CounterVec // outcome: checked, already_seen, matched, duplicate_link, invalid
	NotificationsTotal *prometheus.CounterVec // status: sent, failed
	StoreErrorsTotal   *prometheus.CounterVec // operation: load_filters, save_seen, ...
	WatcherRunning     prometheus.Gauge
	SeenRecords        prometheus.Gauge

	initOnce sync.Once
)

// Init registers all collectors with the default registry. It is safe to call more than once.
func Init() {
	initOnce.Do(register)
}

func register() {
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watcher_cycles_total",
			Help: "Total number of scrape cycles by outcome.",
		},
		[]string{"outcome"},
	)

	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "watcher_cycle_duration_seconds",
			Help:    "Duration of scrape cycles, fetch included.",
			Buckets: []float64{1, 5, 10, 15, 30, 60, 120},
		},
	)

	ListingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watcher_listings_total",
			Help: "Listings evaluated by the matcher, by outcome.",
		},
		[]string{"outcome"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watcher_notifications_total",
			Help: "Notifications sent for new matches, by status.",
		},
		[]string{"status"},
	)

	StoreErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watcher_store_errors_total",
			Help: "State store failures by operation.",
		},
		[]string{"operation"},
	)

	WatcherRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "watcher_running",
			Help: "1 while the scrape loop is running.",
		},
	)

	SeenRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "watcher_seen_records",
			Help: "Number of listings recorded as already notified.",
		},
	)
}
