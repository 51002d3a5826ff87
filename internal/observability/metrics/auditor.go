package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AuditorMetrics covers the audit persistence worker.
type AuditorMetrics struct {
	registry *prometheus.Registry

	persistTotal    *prometheus.CounterVec
	persistDuration *prometheus.HistogramVec
	consumeLag      *prometheus.HistogramVec
}

func NewAuditorMetrics(service string) *AuditorMetrics {
	registry := prometheus.NewRegistry()

	persistTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fedret",
			Subsystem: "auditor",
			Name:      "records_total",
			Help:      "Total persisted audit records by kind and status.",
		},
		[]string{"service", "kind", "status"},
	)
	persistDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fedret",
			Subsystem: "auditor",
			Name:      "persist_duration_seconds",
			Help:      "Audit record insert duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "kind"},
	)
	consumeLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fedret",
			Subsystem: "auditor",
			Name:      "consume_lag_seconds",
			Help:      "Delay between record creation and persistence.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"service"},
	)

	registry.MustRegister(persistTotal, persistDuration, consumeLag)

	return &AuditorMetrics{
		registry:        registry,
		persistTotal:    persistTotal,
		persistDuration: persistDuration,
		consumeLag:      consumeLag,
	}
}

func (m *AuditorMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *AuditorMetrics) RecordPersist(service, kind string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.persistTotal.WithLabelValues(service, kind, status).Inc()
	m.persistDuration.WithLabelValues(service, kind).Observe(duration.Seconds())
}

func (m *AuditorMetrics) ObserveConsumeLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.consumeLag.WithLabelValues(service).Observe(lag.Seconds())
}
