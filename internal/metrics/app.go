// Package metrics records service counters and histograms on the gofulmen
// telemetry system. Every recorder is a no-op until observability.InitMetrics
// has run, so core code and tests can call them unconditionally.
package metrics

import (
	"strconv"
	"time"

	"github.com/newsdecades/newsdecades/internal/observability"
)

// Metric names. The exporter prefixes them with the telemetry namespace.
const (
	QueriesTotal          = "timeline_queries_total"
	CacheTotal            = "timeline_cache_total"
	UpstreamFetchTotal    = "timeline_upstream_fetch_total"
	UpstreamFetchDuration = "timeline_upstream_fetch_ms"

	HealthCheckTotal    = "app_health_check_total"
	HealthCheckDuration = "app_health_check_duration_ms"
	ServerStartTime     = "app_server_start_time_seconds"

	ErrorsTotal = "errors_total"
	PanicsTotal = "panics_total"
)

// Query outcomes that are not error kinds.
const (
	OutcomeOK     = "ok"
	OutcomeNoData = "no_data"
)

func count(name string, labels map[string]string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(name, 1, labels)
}

func observe(name string, d time.Duration, labels map[string]string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Histogram(name, d, labels)
}

// RecordQuery counts a finished timeline query. Outcome is OutcomeOK,
// OutcomeNoData, or an error kind such as "upstream" or "decode"; empty means
// OutcomeOK.
func RecordQuery(outcome string) {
	if outcome == "" {
		outcome = OutcomeOK
	}
	count(QueriesTotal, map[string]string{"outcome": outcome})
}

// RecordCache counts a cache lookup.
func RecordCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	count(CacheTotal, map[string]string{"result": result})
}

// RecordUpstreamFetch records one archive-search fetch. Status is 0 when the
// request failed before a response arrived.
func RecordUpstreamFetch(status int, duration time.Duration) {
	labels := map[string]string{"status": upstreamStatusLabel(status)}
	count(UpstreamFetchTotal, labels)
	observe(UpstreamFetchDuration, duration, labels)
}

func upstreamStatusLabel(status int) string {
	if status == 0 {
		return "transport_error"
	}
	return strconv.Itoa(status)
}

// RecordHealthCheck records one health check run and its resulting status.
func RecordHealthCheck(check, status string, duration time.Duration) {
	count(HealthCheckTotal, map[string]string{"check": check, "status": status})
	observe(HealthCheckDuration, duration, map[string]string{"check": check})
}

// SetServerStartTime records the server start time as a Unix timestamp.
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Gauge(ServerStartTime, float64(timestamp), nil)
}

// RecordError counts an error response. Route is the matched route pattern,
// never the raw path, so label cardinality stays bounded.
func RecordError(code string, httpStatus int, route string) {
	if route == "" {
		route = "unmatched"
	}
	count(ErrorsTotal, map[string]string{
		"error_code":  code,
		"http_status": strconv.Itoa(httpStatus),
		"route":       route,
	})
}

// RecordPanic counts a recovered handler panic.
func RecordPanic() {
	count(PanicsTotal, nil)
}
