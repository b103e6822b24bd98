package observability

import (
	"fmt"
	"net"
	"strconv"

	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/fulmenhq/gofulmen/telemetry/exporters"
)

// fallbackMetricsPort is reported when an ephemeral exporter port cannot be
// read back from the listener.
const fallbackMetricsPort = 9090

var (
	// TelemetrySystem receives every counter, gauge, and histogram. Nil means
	// metrics are disabled and recorders skip emission.
	TelemetrySystem *telemetry.System

	// PrometheusExporter serves the exposition format scraped via /metrics.
	PrometheusExporter *exporters.PrometheusExporter

	metricsPort int
)

// InitMetrics starts a Prometheus exporter on port (0 picks a free one) and
// routes the telemetry system into it. Metric names are prefixed with
// namespace, or with service when namespace is empty.
func InitMetrics(service string, port int, namespace string) error {
	if port < 0 {
		port = 0
	}
	if namespace == "" {
		namespace = service
	}

	exporter := exporters.NewPrometheusExporter(namespace, fmt.Sprintf(":%d", port))
	if err := exporter.Start(); err != nil {
		return fmt.Errorf("start prometheus exporter: %w", err)
	}

	sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: true, Emitter: exporter})
	if err != nil {
		_ = exporter.Stop()
		return fmt.Errorf("create telemetry system: %w", err)
	}

	metricsPort = boundPort(exporter.GetAddr(), port)
	PrometheusExporter = exporter
	TelemetrySystem = sys
	return nil
}

func boundPort(addr string, requested int) int {
	if _, raw, err := net.SplitHostPort(addr); err == nil {
		if port, err := strconv.Atoi(raw); err == nil {
			return port
		}
	}
	if requested == 0 {
		return fallbackMetricsPort
	}
	return requested
}

// GetMetricsPort returns the port the exporter listens on.
func GetMetricsPort() int {
	return metricsPort
}

// ShutdownMetrics stops the exporter if one is running.
func ShutdownMetrics() error {
	if PrometheusExporter == nil {
		return nil
	}
	return PrometheusExporter.Stop()
}
