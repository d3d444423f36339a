package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	eventsPublished *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	netWorth        *prometheus.GaugeVec
	latency         *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		eventsPublished: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "worthwatch_events_published_total",
				Help: "Total number of events published to a sink",
			},
			[]string{"sink", "event"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "worthwatch_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		netWorth: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "worthwatch_net_worth",
				Help: "Net worth of the latest built snapshot, in base currency",
			},
			[]string{"measure"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "worthwatch_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordEventPublished records an event delivered to a sink.
func (r *Recorder) RecordEventPublished(sink, event string) {
	r.eventsPublished.WithLabelValues(sink, event).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordNetWorth records the latest snapshot's net worth for a measure
// (nominal or real).
func (r *Recorder) RecordNetWorth(measure string, value float64) {
	r.netWorth.WithLabelValues(measure).Set(value)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
