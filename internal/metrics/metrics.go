package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wedplan_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// outcome: upstream, cache, sample
	VendorSearches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wedplan_vendor_searches_total",
			Help: "Vendor searches by category and outcome",
		},
		[]string{"category", "outcome"},
	)

	VendorUpstreamLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wedplan_vendor_upstream_latency_seconds",
			Help:    "Latency of upstream place search calls",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 11), // 10ms to ~10s
		},
	)

	// status: sent, expired, failed
	PushDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wedplan_push_deliveries_total",
			Help: "Web push deliveries by status",
		},
		[]string{"status"},
	)

	RemindersScheduled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wedplan_reminders_scheduled_total",
			Help: "Reminders written to the reminder queue",
		},
	)

	// status: completed, failed
	Backups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wedplan_backups_total",
			Help: "Backup runs by status",
		},
		[]string{"status"},
	)
)

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func IncrementVendorSearch(category, outcome string) {
	VendorSearches.WithLabelValues(category, outcome).Inc()
}

func IncrementPushDelivery(status string) {
	PushDeliveries.WithLabelValues(status).Inc()
}

func IncrementBackup(status string) {
	Backups.WithLabelValues(status).Inc()
}
