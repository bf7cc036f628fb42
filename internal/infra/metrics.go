package infra

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Latency HTTP API
	RequestDuration *prometheus.HistogramVec

	// Traffic: общее кол-во запросов
	TotalRequests *prometheus.CounterVec

	// Audit: захваченные, отброшенные и записанные события
	AuditCaptured *prometheus.CounterVec
	AuditDropped  *prometheus.CounterVec
	AuditFlushed  prometheus.Counter
	AuditFailures prometheus.Counter

	// Audit: заполненность буфера (backpressure)
	AuditBufferFill prometheus.Gauge

	// Retention: сколько событий удалено физически
	AuditPurged prometheus.Counter

	// Saturation: состояние Circuit Breaker кэша (0 - ок, 1 - выбило)
	CacheBreakerState prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		RequestDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "promulher_http_request_duration_seconds",
			Help:    "Histogram of request latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"method", "route", "status"}),

		TotalRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "promulher_http_requests_total",
			Help: "Total number of processed requests.",
		}, []string{"method", "route"}),

		AuditCaptured: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "promulher_audit_events_captured_total",
			Help: "Audit events accepted into the buffer by module.",
		}, []string{"module"}),

		AuditDropped: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "promulher_audit_events_dropped_total",
			Help: "Audit events dropped before persistence.",
		}, []string{"reason"}), // overflow, stopped

		AuditFlushed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "promulher_audit_events_flushed_total",
			Help: "Audit events written to the store.",
		}),

		AuditFailures: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "promulher_audit_flush_failures_total",
			Help: "Failed batch writes to the audit store.",
		}),

		AuditBufferFill: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "promulher_audit_buffer_utilization",
			Help: "Current number of events in audit buffer.",
		}),

		AuditPurged: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "promulher_audit_events_purged_total",
			Help: "Soft-deleted audit events physically removed by retention.",
		}),

		CacheBreakerState: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "promulher_stats_cache_breaker_state",
			Help: "Current state of the stats cache circuit breaker (0=closed, 1=open).",
		}),
	}
}
