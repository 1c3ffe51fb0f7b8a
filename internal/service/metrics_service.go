package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	cacheLookups      *prometheus.CounterVec
	registrationTotal *prometheus.CounterVec
	registrationTx    *prometheus.HistogramVec
	eventsTotal       *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of API requests by the error code they ended with",
	}, []string{"method", "path", "status", "code"})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_lookups_total",
		Help: "Cache lookups by result",
	}, []string{"result"})

	registrationTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "registration_operations_total",
		Help: "Enrollment engine operations by outcome code",
	}, []string{"operation", "outcome"})

	registrationTx := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "registration_transaction_duration_seconds",
		Help:    "Time spent inside enrollment transactions, lock waits included",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"operation"})

	eventsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "registration_events_total",
		Help: "Enrollment events handled by the dispatcher",
	}, []string{"type", "result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLookups, registrationTotal, registrationTx, eventsTotal, goroutines)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLookups:      cacheLookups,
		registrationTotal: registrationTotal,
		registrationTx:    registrationTx,
		eventsTotal:       eventsTotal,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the private registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics. code is the application error code, or OK.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, code string, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus, code).Inc()
}

// RecordCacheLookup counts a cache hit or miss.
func (m *MetricsService) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// RecordRegistration counts an engine operation by outcome code (OK or an error code).
func (m *MetricsService) RecordRegistration(operation, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.registrationTotal.WithLabelValues(operation, outcome).Inc()
	m.registrationTx.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordEvent counts a dispatched event.
func (m *MetricsService) RecordEvent(eventType string, ok bool) {
	if m == nil {
		return
	}
	result := "published"
	if !ok {
		result = "failed"
	}
	m.eventsTotal.WithLabelValues(eventType, result).Inc()
}
