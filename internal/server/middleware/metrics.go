package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/newsdecades/newsdecades/internal/observability"
)

// HTTP metric names.
const (
	RequestsTotal       = "http_requests_total"
	RequestDuration     = "http_request_duration_ms"
	ResponseSize        = "http_response_size_bytes"
	ErrorResponsesTotal = "http_errors_total"
)

// statusRecorder captures the status code and body size written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int64
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.written += int64(n)
	return n, err
}

// routeLabel returns the chi route pattern of the request, so /?q=<term> is
// counted once as "/" whatever the term. Requests served outside chi fall
// back to a fixed set of known paths.
func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}

	switch path := r.URL.Path; {
	case path == "/", path == "/version", path == "/metrics":
		return path
	case path == "/health", strings.HasPrefix(path, "/health/"):
		return "/health/*"
	default:
		return "unmatched"
	}
}

// RequestMetrics counts requests, errors, durations, and response sizes per
// route and logs each completed request.
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		route := routeLabel(r)
		status := strconv.Itoa(rec.status)

		if sys := observability.TelemetrySystem; sys != nil {
			labels := map[string]string{"method": r.Method, "endpoint": route, "status": status}
			_ = sys.Counter(RequestsTotal, 1, labels)
			_ = sys.Histogram(RequestDuration, elapsed, labels)
			_ = sys.Gauge(ResponseSize, float64(rec.written), map[string]string{"method": r.Method, "endpoint": route})

			if rec.status >= http.StatusBadRequest {
				errorType := "client_error"
				if rec.status >= http.StatusInternalServerError {
					errorType = "server_error"
				}
				_ = sys.Counter(ErrorResponsesTotal, 1, map[string]string{
					"method":     r.Method,
					"endpoint":   route,
					"status":     status,
					"error_type": errorType,
				})
			}
		}

		if logger := observability.ServerLogger; logger != nil {
			logger.Info("HTTP request completed",
				zap.String("method", r.Method),
				zap.String("endpoint", route),
				zap.Int("status", rec.status),
				zap.Duration("duration", elapsed),
				zap.Int64("response_size", rec.written),
				zap.String("request_id", GetRequestID(r.Context())))
		}
	})
}
