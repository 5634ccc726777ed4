// Package metrics exposes Prometheus collectors for the relay.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Retrieval outcomes.
const (
	OutcomeOK           = "ok"
	OutcomeNotFound     = "not_found"
	OutcomeConnectError = "connect_error"
	OutcomeFetchError   = "fetch_error"
)

var (
	registrationsTotal         *prometheus.CounterVec
	retrievalsTotal            *prometheus.CounterVec
	bytesTotal                 prometheus.Counter
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors with the default registry.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		registrationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_registrations_total",
				Help: "Total number of registrations, labeled by whether a record was created.",
			},
			[]string{"created"},
		)

		retrievalsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_retrievals_total",
				Help: "Total number of short link retrievals, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		bytesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "relay_bytes_total",
				Help: "Total number of upstream bytes relayed to clients.",
			},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 30},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRegistration counts a successful registration.
func ObserveRegistration(created bool) {
	Init()
	registrationsTotal.WithLabelValues(strconv.FormatBool(created)).Inc()
}

// ObserveRetrieval counts a retrieval and the bytes it relayed.
func ObserveRetrieval(outcome string, relayed int64) {
	Init()
	retrievalsTotal.WithLabelValues(outcome).Inc()
	if relayed > 0 {
		bytesTotal.Add(float64(relayed))
	}
}

// ObserveHTTPRequest records the latency of one HTTP request.
func ObserveHTTPRequest(method, route string, duration time.Duration) {
	Init()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Middleware records request latency per chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		route := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}

		ObserveHTTPRequest(r.Method, route, time.Since(start))
	})
}
