package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	gferrors "github.com/fulmenhq/gofulmen/errors"

	apperrors "github.com/newsdecades/newsdecades/internal/errors"
	"github.com/newsdecades/newsdecades/internal/metrics"
)

// Check and overall statuses.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
	StatusTimeout   = "timeout"
)

// Probes served under /health.
const (
	ProbeAggregate = "aggregate"
	ProbeLive      = "live"
	ProbeReady     = "ready"
	ProbeStartup   = "startup"
)

var probeTimeouts = map[string]time.Duration{
	ProbeAggregate: 5 * time.Second,
	ProbeReady:     5 * time.Second,
	ProbeStartup:   3 * time.Second,
}

// HealthChecker is a component that can report its health.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// HealthCheckFunc adapts a function to HealthChecker.
type HealthCheckFunc func(ctx context.Context) error

// CheckHealth implements HealthChecker.
func (f HealthCheckFunc) CheckHealth(ctx context.Context) error {
	return f(ctx)
}

type healthCheck struct {
	checker  HealthChecker
	optional bool
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp string            `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ProbeResponse is the body of the live, ready, and startup probes.
type ProbeResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthManager runs registered checks for the health endpoints.
type HealthManager struct {
	mu      sync.RWMutex
	checks  map[string]healthCheck
	version string
	started time.Time
}

// NewHealthManager creates a manager reporting version.
func NewHealthManager(version string) *HealthManager {
	return &HealthManager{
		checks:  make(map[string]healthCheck),
		version: version,
		started: time.Now(),
	}
}

// RegisterChecker adds a required check. Its failure makes the service
// unhealthy.
func (hm *HealthManager) RegisterChecker(name string, checker HealthChecker) {
	hm.register(name, checker, false)
}

// RegisterOptional adds a check whose failure only degrades the service, for
// dependencies such as the cache store that queries can run without.
func (hm *HealthManager) RegisterOptional(name string, checker HealthChecker) {
	hm.register(name, checker, true)
}

func (hm *HealthManager) register(name string, checker HealthChecker, optional bool) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.checks[name] = healthCheck{checker: checker, optional: optional}
}

// Run executes every check in name order and returns the overall status with
// the per-check results. Checks not started before ctx ends report timeout.
func (hm *HealthManager) Run(ctx context.Context) (string, map[string]string) {
	hm.mu.RLock()
	names := make([]string, 0, len(hm.checks))
	checks := make(map[string]healthCheck, len(hm.checks))
	for name, check := range hm.checks {
		names = append(names, name)
		checks[name] = check
	}
	hm.mu.RUnlock()
	sort.Strings(names)

	results := make(map[string]string, len(names))
	for _, name := range names {
		check := checks[name]
		start := time.Now()

		status := StatusHealthy
		switch {
		case ctx.Err() != nil:
			status = StatusTimeout
		case check.checker.CheckHealth(ctx) != nil:
			status = StatusUnhealthy
			if check.optional {
				status = StatusDegraded
			}
		}

		results[name] = status
		metrics.RecordHealthCheck(name, status, time.Since(start))
	}
	return overallStatus(results), results
}

func overallStatus(results map[string]string) string {
	overall := StatusHealthy
	for _, status := range results {
		switch status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded, StatusTimeout:
			overall = StatusDegraded
		}
	}
	return overall
}

// Handler serves probe. Liveness only reports that the process is serving
// requests; the other probes run the registered checks. A nil manager answers
// 503 on every probe.
func (hm *HealthManager) Handler(probe string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hm == nil {
			apperrors.RespondWithEnvelope(w, r, unavailable(probe, "health manager not initialized", "unknown", nil))
			return
		}

		status, checks := StatusHealthy, map[string]string(nil)
		if probe != ProbeLive {
			ctx, cancel := context.WithTimeout(r.Context(), probeTimeouts[probe])
			status, checks = hm.Run(ctx)
			cancel()
		}

		if status == StatusUnhealthy {
			apperrors.RespondWithEnvelope(w, r, unavailable(probe, probe+" health check failed", status, checks))
			return
		}

		now := time.Now().UTC()
		var body any = ProbeResponse{Status: status, Timestamp: now}
		if probe == ProbeAggregate {
			body = HealthResponse{
				Status:    status,
				Version:   hm.version,
				Timestamp: now.Format(time.RFC3339),
				Uptime:    time.Since(hm.started).Round(time.Second).String(),
				Checks:    checks,
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(body)
	}
}

func unavailable(probe, message, status string, checks map[string]string) *gferrors.ErrorEnvelope {
	details := map[string]interface{}{"probe": probe, "status": status}
	if len(checks) > 0 {
		details["checks"] = checks
	}
	envelope := apperrors.NewServiceUnavailableError(message).WithDetails(details)

	var failing []string
	for name, result := range checks {
		if result != StatusHealthy {
			failing = append(failing, name)
		}
	}
	if len(failing) > 0 {
		sort.Strings(failing)
		if updated, err := envelope.WithContext(map[string]interface{}{"unhealthy_checks": failing}); err == nil {
			envelope = updated
		}
	}
	return envelope
}
