package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all portal metrics.
type Metrics struct {
	// Appointment pipeline
	AppointmentWrites      *prometheus.CounterVec
	SchemaFallbackAttempts *prometheus.CounterVec

	// Outbox
	OutboxEventsProcessed   prometheus.Counter
	OutboxEventsFailed      prometheus.Counter
	OutboxProcessingLatency prometheus.Histogram

	// Chat proxy
	ChatRequests        *prometheus.CounterVec
	ChatUpstreamLatency *prometheus.HistogramVec

	// Database
	DatabaseOperations *prometheus.CounterVec
}

// New creates and registers all portal metrics.
func New(namespace, subsystem string) *Metrics {
	return &Metrics{
		AppointmentWrites: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "appointment_writes_total",
			Help:      "Appointment write operations by type and outcome",
		}, []string{"operation", "status"}),
		SchemaFallbackAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "schema_fallback_attempts_total",
			Help:      "Insert attempts per appointment schema shape",
		}, []string{"shape", "status"}),
		OutboxEventsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outbox_events_processed_total",
			Help:      "Total number of successfully published outbox events",
		}),
		OutboxEventsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outbox_events_failed_total",
			Help:      "Total number of failed outbox events",
		}),
		OutboxProcessingLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "outbox_processing_duration_seconds",
			Help:      "Time spent publishing outbox batches",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		ChatRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "chat_requests_total",
			Help:      "Chat proxy requests by role and outcome",
		}, []string{"role", "status"}),
		ChatUpstreamLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "chat_upstream_duration_seconds",
			Help:      "Latency of calls to the chat service",
			Buckets:   prometheus.DefBuckets,
		}, []string{"role"}),
		DatabaseOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "database_operations_total",
			Help:      "Database operations by name and outcome",
		}, []string{"operation", "status"}),
	}
}
