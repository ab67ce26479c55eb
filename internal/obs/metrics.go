package obs

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	readyGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "service_ready",
		Help: "1 when the readiness probe passes, 0 otherwise.",
	})

	assignmentTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assignment_transitions_total",
			Help: "Assignment state transitions applied, by target state.",
		},
		[]string{"to"},
	)

	settlementCalculations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_calculations_total",
		Help: "Settlement reports computed.",
	})

	rateUnresolved = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rate_resolutions_unresolved_total",
		Help: "Settlement lines whose (tournament, rank, role) had no active rate.",
	})
)

var initOnce sync.Once

// Init registers all metrics in the default registry.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight,
			httpRequestsTotal,
			httpRequestDuration,
			readyGauge,
			assignmentTransitions,
			settlementCalculations,
			rateUnresolved,
		)
	})
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetReady records the outcome of the latest readiness probe.
func SetReady(ready bool) {
	if ready {
		readyGauge.Set(1)
		return
	}
	readyGauge.Set(0)
}

// AssignmentTransition counts one applied transition.
func AssignmentTransition(to string) {
	assignmentTransitions.WithLabelValues(to).Inc()
}

// SettlementCalculated counts one computed settlement report.
func SettlementCalculated() {
	settlementCalculations.Inc()
}

// RateUnresolved counts a settlement line that degraded to zero pay.
func RateUnresolved() {
	rateUnresolved.Inc()
}

// Instrument wraps an HTTP handler with RPS/latency/in-flight metrics.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush keeps the wrapped writer usable for SSE responses.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
