package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	matchTotal      *prometheus.CounterVec
	assignTotal     *prometheus.CounterVec
	emailFailures   prometheus.Counter
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	matchTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trainer_match_requests_total",
		Help: "Trainer match requests by ranking source and cache use",
	}, []string{"source", "cached"})

	assignTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trainer_assignments_total",
		Help: "Assignment attempts by outcome",
	}, []string{"outcome"})

	emailFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "assignment_email_failures_total",
		Help: "Assignment notification emails that failed to send",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "match_cache_hits_total",
		Help: "Total match cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "match_cache_misses_total",
		Help: "Total match cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, matchTotal, assignTotal, emailFailures, cacheHits, cacheMisses, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		matchTotal:      matchTotal,
		assignTotal:     assignTotal,
		emailFailures:   emailFailures,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
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

// ObserveHTTPRequest records request count and latency.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordMatchOutcome counts one trainer match request. Cached results also
// feed the cache hit/miss counters.
func (m *MetricsService) RecordMatchOutcome(source string, cached bool) {
	if m == nil {
		return
	}
	label := "false"
	if cached {
		label = "true"
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
	m.matchTotal.WithLabelValues(source, label).Inc()
}

// RecordAssignment counts one assignment attempt. Outcome is "assigned",
// "blocked" or "failed".
func (m *MetricsService) RecordAssignment(outcome string) {
	if m == nil {
		return
	}
	m.assignTotal.WithLabelValues(outcome).Inc()
}

// RecordEmailFailure counts one failed assignment notification.
func (m *MetricsService) RecordEmailFailure() {
	if m == nil {
		return
	}
	m.emailFailures.Inc()
}
