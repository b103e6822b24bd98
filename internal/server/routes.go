package server

import (
	"context"
	"os"

	"github.com/fulmenhq/gofulmen/signals"
	"go.uber.org/zap"

	"github.com/newsdecades/newsdecades/internal/appid"
	"github.com/newsdecades/newsdecades/internal/observability"
	"github.com/newsdecades/newsdecades/internal/server/handlers"
)

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	// Timeline queries: GET /?q=<term>
	if s.routes.Timeline != nil {
		s.router.Get("/", s.routes.Timeline.ServeHTTP)
	}

	// Health endpoints
	health := s.routes.Health
	s.router.Get("/health", health.Handler(handlers.ProbeAggregate))
	s.router.Get("/health/live", health.Handler(handlers.ProbeLive))
	s.router.Get("/health/ready", health.Handler(handlers.ProbeReady))
	s.router.Get("/health/startup", health.Handler(handlers.ProbeStartup))

	// Version endpoint
	version := s.routes.Version
	if version == nil {
		version = handlers.NewVersionHandler(nil, handlers.ServiceInfo{})
	}
	s.router.Get("/version", version.ServeHTTP)

	// Metrics endpoint (proxies the Prometheus exporter)
	s.router.Get("/metrics", MetricsHandler)

	// Admin signal endpoint (optional, requires NEWSDECADES_ADMIN_TOKEN)
	s.registerAdminEndpoint()
}

// registerAdminEndpoint optionally registers the admin signal endpoint
func (s *Server) registerAdminEndpoint() {
	identity, _ := appid.Get(context.Background())
	envPrefix := identity.Prefix()

	adminToken := os.Getenv(envPrefix + "ADMIN_TOKEN")
	logger := observability.ServerLogger

	if adminToken == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled (no " + envPrefix + "ADMIN_TOKEN set)")
		}
		return
	}

	// Bearer token auth with rate limiting; SIGHUP here reloads the config.
	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: adminToken,
		RateLimit: 10,  // 10 requests per minute
		RateBurst: 5,   // burst size
		Manager:   nil, // use default global manager
	})

	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger != nil {
		logger.Info("Admin signal endpoint enabled",
			zap.String("path", "/admin/signal"),
			zap.String("auth", "bearer token"),
			zap.String("rate_limit", "10/min, burst 5"))
		logger.Warn("Admin endpoint enabled - ensure this server is not exposed to public internet")
	}
}
