package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/federated-retrieval/internal/core/domain"
)

// RetrievalMetrics is the API server's registry: HTTP surface plus the
// orchestration signals (cache outcomes, per-provider fan-out results,
// breaker transitions).
type RetrievalMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	retrievalTotal     *prometheus.CounterVec
	retrievalDuration  *prometheus.HistogramVec
	cacheTotal         *prometheus.CounterVec
	providerTotal      *prometheus.CounterVec
	providerDuration   *prometheus.HistogramVec
	candidatesReturned *prometheus.HistogramVec
	breakerTransitions *prometheus.CounterVec
}

func NewRetrievalMetrics(service string) *RetrievalMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fedret",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fedret",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fedret",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	retrievalTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fedret",
			Subsystem: "retrieval",
			Name:      "requests_total",
			Help:      "Total completed retrievals by outcome.",
		},
		[]string{"service", "outcome"},
	)
	retrievalDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fedret",
			Subsystem: "retrieval",
			Name:      "duration_seconds",
			Help:      "Orchestration duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	cacheTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fedret",
			Subsystem: "retrieval",
			Name:      "cache_total",
			Help:      "Result cache lookups by outcome.",
		},
		[]string{"service", "outcome"},
	)
	providerTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fedret",
			Subsystem: "provider",
			Name:      "requests_total",
			Help:      "Per-provider fan-out outcomes.",
		},
		[]string{"service", "provider", "status"},
	)
	providerDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fedret",
			Subsystem: "provider",
			Name:      "duration_seconds",
			Help:      "Per-provider search duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 10},
		},
		[]string{"service", "provider"},
	)
	candidatesReturned := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fedret",
			Subsystem: "retrieval",
			Name:      "candidates_returned",
			Help:      "Distribution of ranked candidates per retrieval.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 34, 55},
		},
		[]string{"service"},
	)
	breakerTransitions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fedret",
			Subsystem: "breaker",
			Name:      "transitions_total",
			Help:      "Circuit breaker state transitions per provider.",
		},
		[]string{"service", "provider", "to"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		retrievalTotal,
		retrievalDuration,
		cacheTotal,
		providerTotal,
		providerDuration,
		candidatesReturned,
		breakerTransitions,
	)

	return &RetrievalMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		retrievalTotal:     retrievalTotal,
		retrievalDuration:  retrievalDuration,
		cacheTotal:         cacheTotal,
		providerTotal:      providerTotal,
		providerDuration:   providerDuration,
		candidatesReturned: candidatesReturned,
		breakerTransitions: breakerTransitions,
	}
}

func (m *RetrievalMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *RetrievalMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

// RecordRetrieval derives all orchestration observations from one result.
func (m *RetrievalMetrics) RecordRetrieval(service string, result *domain.RetrievalResult) {
	outcome := "fanout"
	cacheOutcome := "miss"
	if result.CacheHit {
		outcome = "cache_hit"
		cacheOutcome = "hit"
	}
	m.retrievalTotal.WithLabelValues(service, outcome).Inc()
	m.cacheTotal.WithLabelValues(service, cacheOutcome).Inc()
	m.retrievalDuration.WithLabelValues(service).Observe(float64(result.DurationMs) / 1000.0)
	m.candidatesReturned.WithLabelValues(service).Observe(float64(result.Total))

	for _, stats := range result.Providers {
		m.providerTotal.WithLabelValues(service, stats.Provider, stats.Status).Inc()
		if stats.Status != domain.ProviderStatusSkipped {
			m.providerDuration.WithLabelValues(service, stats.Provider).Observe(float64(stats.DurationMs) / 1000.0)
		}
	}
}

func (m *RetrievalMetrics) RecordRejectedRetrieval(service string) {
	m.retrievalTotal.WithLabelValues(service, "rejected").Inc()
}

func (m *RetrievalMetrics) RecordBreakerTransition(service, provider, to string) {
	m.breakerTransitions.WithLabelValues(service, provider, to).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytesWritten += n
	return n, err
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
