package daemon

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "threadrunner",
			Subsystem: "ipc",
			Name:      "requests_total",
			Help:      "Total prompt requests handled, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	requestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "threadrunner",
			Subsystem: "ipc",
			Name:      "request_duration_seconds",
			Help:      "Wall time from request frame to final response frame.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	tokensStreamedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "threadrunner",
			Subsystem: "ipc",
			Name:      "tokens_streamed_total",
			Help:      "Total token frames written to clients.",
		},
	)

	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "threadrunner",
			Subsystem: "ipc",
			Name:      "errors_total",
			Help:      "Total request errors, labeled by wire error kind.",
		},
		[]string{"kind"},
	)

	connectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "threadrunner",
			Subsystem: "ipc",
			Name:      "connections_active",
			Help:      "Client connections currently being served.",
		},
	)

	modelLoadsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "threadrunner",
			Subsystem: "model",
			Name:      "loads_total",
			Help:      "Total backend loads.",
		},
	)

	modelUnloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "threadrunner",
			Subsystem: "model",
			Name:      "unloads_total",
			Help:      "Total backend unloads, labeled by reason.",
		},
		[]string{"reason"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "threadrunner",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total debug HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "threadrunner",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Debug HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func init() {
	prometheus.MustRegister(
		requestsTotal,
		requestDuration,
		tokensStreamedTotal,
		errorsTotal,
		connectionsActive,
		modelLoadsTotal,
		modelUnloadsTotal,
		httpRequestsTotal,
		httpRequestDuration,
	)
}

// statusRecorder captures the response status for metrics labels.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// metricsMiddleware instruments the debug mux with request counts and
// latency histograms keyed by route pattern.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues(r.Method, routePatternOrPath(r)))
		next.ServeHTTP(rec, r)
		timer.ObserveDuration()
		httpRequestsTotal.WithLabelValues(r.Method, routePatternOrPath(r), strconv.Itoa(rec.status)).Inc()
	})
}

// routePatternOrPath prefers the chi route pattern to keep metric
// cardinality bounded, falling back to the raw path.
func routePatternOrPath(r *http.Request) string {
	if ctx := chi.RouteContext(r.Context()); ctx != nil {
		if pattern := ctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
