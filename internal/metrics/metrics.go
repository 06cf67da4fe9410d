package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EmailOutcomes tracks notifier results by outcome status
	EmailOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recovery_notifier_email_outcomes_total",
			Help: "Total number of email notifications by outcome",
		},
		[]string{"status"}, // sent, skipped, failed
	)

	// APIRequests tracks backend API calls by method and response status
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recovery_notifier_api_requests_total",
			Help: "Total number of backend API requests",
		},
		[]string{"method", "status"},
	)

	// APIRequestDuration tracks backend API call duration
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recovery_notifier_api_request_duration_seconds",
			Help:    "Backend API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// RateLimitExceeded tracks rate limit violations
	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recovery_notifier_rate_limit_exceeded_total",
			Help: "Total number of rate limit exceeded events",
		},
	)
)
