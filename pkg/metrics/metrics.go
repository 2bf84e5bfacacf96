package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure|locked).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workstead_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// CacheLookups counts query cache outcomes (hit|miss|stale) per key prefix.
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workstead_cache_lookups_total",
			Help: "Total number of query cache lookups",
		},
		[]string{"prefix", "outcome"},
	)

	// EmailsSent counts outbound emails by result (success|failure).
	EmailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workstead_emails_sent_total",
			Help: "Total number of outbound email deliveries",
		},
		[]string{"result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "workstead_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
