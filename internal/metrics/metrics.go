package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the ftp_manage tool
type Metrics struct {
	OperationCounter   *prometheus.CounterVec
	OperationDuration  *prometheus.HistogramVec
	OperationsInFlight *prometheus.GaugeVec
	ChannelFailures    prometheus.Counter
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OperationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "ftp_control",
				Name:      "operations_total",
				Help:      "Total number of ftp_manage invocations by outcome",
			},
			[]string{"operation", "outcome"}, // outcome: ok or the error kind
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "ftp_control",
				Name:      "operation_duration_seconds",
				Help:      "Invocation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		OperationsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "ftp_control",
				Name:      "operations_in_flight",
				Help:      "Number of invocations currently being processed",
			},
			[]string{"operation"},
		),
		ChannelFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "ftp_control",
				Name:      "channel_failures_total",
				Help:      "Messages that could not be delivered to the conversation channel",
			},
		),
	}
}

// Track marks an operation as started and returns the function that records
// its completion.
func (m *Metrics) Track(operation string) func(outcome string) {
	m.OperationsInFlight.WithLabelValues(operation).Inc()
	start := time.Now()
	return func(outcome string) {
		m.OperationsInFlight.WithLabelValues(operation).Dec()
		m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
		m.OperationCounter.WithLabelValues(operation, outcome).Inc()
	}
}
