package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	BuildLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "worthwatch",
			Subsystem: "pipeline",
			Name:      "build_seconds",
			Help:      "Latency of dashboard builds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"trigger"},
	)

	BuildErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "worthwatch",
			Subsystem: "pipeline",
			Name:      "build_errors_total",
			Help:      "Failed dashboard builds by trigger",
		},
		[]string{"trigger"},
	)

	SnapshotWarnings = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "worthwatch",
			Subsystem: "pipeline",
			Name:      "snapshot_warnings",
			Help:      "Warnings attached to snapshots in the latest build",
		},
		[]string{"month"},
	)

	APILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "worthwatch",
			Subsystem: "api",
			Name:      "request_seconds",
			Help:      "Latency of dashboard API requests",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	APIErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "worthwatch",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Dashboard API errors by endpoint",
		},
		[]string{"endpoint"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(BuildLatency, BuildErrors, SnapshotWarnings, APILatency, APIErrors)
	})
}
