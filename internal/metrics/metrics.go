package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReadingsIngested counts reading updates successfully persisted.
	ReadingsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flowmeter_readings_ingested_total",
		Help: "Total number of reading updates persisted",
	})

	// WarningsFired counts threshold breaches by metric and severity.
	WarningsFired = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowmeter_warnings_fired_total",
		Help: "Total number of threshold warnings fired",
	}, []string{"metric", "severity"})

	// NotificationsSent counts successful push deliveries.
	NotificationsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flowmeter_notifications_sent_total",
		Help: "Total number of push notifications delivered",
	})

	// NotificationsFailed counts per-device delivery failures.
	NotificationsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flowmeter_notifications_failed_total",
		Help: "Total number of push notification delivery failures",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowmeter_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration observes HTTP request latency in seconds.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flowmeter_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)
