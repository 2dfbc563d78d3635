package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPMetricsMiddleware creates middleware that records HTTP request metrics.
// The handlerName parameter should be a constant identifier for the endpoint (e.g., "/metrics").
func HTTPMetricsMiddleware(m *Metrics, handlerName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}
			next.ServeHTTP(wrapped, r)

			m.RecordHTTPRequest(handlerName, r.Method, wrapped.statusCode, time.Since(start).Seconds())
		})
	}
}

// NewHandler returns the bot's operational mux: /metrics for the given
// gatherer and /healthz as a liveness probe.
func NewHandler(m *Metrics, gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", HTTPMetricsMiddleware(m, "/metrics")(
		promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
	))
	mux.Handle("/healthz", HTTPMetricsMiddleware(m, "/healthz")(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		}),
	))
	return mux
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code and calls the underlying WriteHeader.
func (w *responseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
