package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
)

// AuditQueueMetrics instruments the audit queue. A fresh set is created
// per queue instance against the given registerer so tests can run
// multiple independent queues.
type AuditQueueMetrics struct {
	QueueSize       prometheus.Gauge
	Enqueued        prometheus.Counter
	DroppedCapacity prometheus.Counter
	DroppedRetry    prometheus.Counter
	Persisted       prometheus.Counter
}

// NewAuditQueueMetrics registers the audit queue collectors.
func NewAuditQueueMetrics(reg prometheus.Registerer) *AuditQueueMetrics {
	factory := promauto.With(reg)
	return &AuditQueueMetrics{
		QueueSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "audit_queue_size",
			Help: "Number of audit entries currently queued.",
		}),
		Enqueued: factory.NewCounter(prometheus.CounterOpts{
			Name: "audit_queue_enqueued_total",
			Help: "Audit entries accepted into the queue.",
		}),
		DroppedCapacity: factory.NewCounter(prometheus.CounterOpts{
			Name: "audit_queue_dropped_capacity_total",
			Help: "Audit entries dropped because the queue was full.",
		}),
		DroppedRetry: factory.NewCounter(prometheus.CounterOpts{
			Name: "audit_queue_dropped_retry_total",
			Help: "Audit entries dropped after exhausting retries.",
		}),
		Persisted: factory.NewCounter(prometheus.CounterOpts{
			Name: "audit_queue_persisted_total",
			Help: "Audit entries successfully persisted.",
		}),
	}
}

// HTTPMetrics instruments request handling.
type HTTPMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewHTTPMetrics registers the HTTP collectors.
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	factory := promauto.With(reg)
	return &HTTPMetrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, path and status.",
		}, []string{"method", "path", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

// Handler exposes the given registry over HTTP.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
