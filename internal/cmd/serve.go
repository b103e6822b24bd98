package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/newsdecades/newsdecades/internal/appid"
	"github.com/newsdecades/newsdecades/internal/config"
	errwrap "github.com/newsdecades/newsdecades/internal/errors"
	"github.com/newsdecades/newsdecades/internal/metrics"
	"github.com/newsdecades/newsdecades/internal/observability"
	"github.com/newsdecades/newsdecades/internal/server"
	"github.com/newsdecades/newsdecades/internal/server/handlers"
)

var (
	serverPort  int
	serverHost  string
	serverDebug bool
)

// telemetryReady fails until the metrics exporter is running.
func telemetryReady(context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

// identityComplete fails when the app identity lacks a field that config
// discovery or env binding depends on.
func identityComplete(identity *appid.Identity) handlers.HealthCheckFunc {
	return func(context.Context) error {
		switch {
		case identity == nil:
			return errwrap.NewConfigInvalidError("app identity not loaded")
		case identity.BinaryName == "":
			return errwrap.NewConfigInvalidError("app identity missing binary name")
		case identity.EnvPrefix == "":
			return errwrap.NewConfigInvalidError("app identity missing env prefix")
		case identity.ConfigName == "":
			return errwrap.NewConfigInvalidError("app identity missing config name")
		}
		return nil
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server answering GET /?q=<term> with decade averages.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Config reload (debug mode and log level)

Edits to the config file are picked up the same way as SIGHUP.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	identity := GetAppIdentity()
	namespace := identity.TelemetryNamespace()
	build := appid.CurrentBuild()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return errwrap.WrapConfigInvalid(ctx, err, "config load failed")
	}

	observability.InitServerLogger(identity.BinaryName, cfg.EffectiveLogLevel(), namespace)
	logger := observability.ServerLogger

	metricsPort := cfg.Metrics.Port
	if cfg.Metrics.Enabled {
		if err := observability.InitMetrics(identity.BinaryName, metricsPort, namespace); err != nil {
			logger.Error("Failed to initialize metrics", zap.Error(err))
			return errwrap.WrapInternal(ctx, err, "metrics initialization failed")
		}
		metricsPort = observability.GetMetricsPort()
	}

	deps, err := buildService(ctx, cfg, logger, false)
	if err != nil {
		return errwrap.WrapConfigInvalid(ctx, err, "timeline service setup failed")
	}

	logger.Info("Initializing server",
		zap.String("service", identity.BinaryName),
		zap.String("namespace", namespace),
		zap.String("version", build.Version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Int("metrics_port", metricsPort),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Duration("cache_ttl", cfg.Cache.TTL),
		zap.String("extractor", cfg.Upstream.Extractor),
		zap.Bool("debug", cfg.Debug.Enabled))

	// Health checks. Queries still answer without the cache store, so its
	// failure only degrades readiness.
	health := handlers.NewHealthManager(build.Version)
	if cfg.Metrics.Enabled {
		health.RegisterChecker("telemetry", handlers.HealthCheckFunc(telemetryReady))
	}
	health.RegisterChecker("app_identity", identityComplete(identity))
	if deps.Store != nil {
		health.RegisterOptional("cache_store", deps.Store)
	}

	timelineHandler := handlers.NewTimelineHandler(deps.Service, cfg.Debug.Enabled)
	srv := server.New(cfg.Server, server.Routes{
		Timeline: timelineHandler,
		Health:   health,
		Version: handlers.NewVersionHandler(identity, handlers.ServiceInfo{
			Extractor:    cfg.Upstream.Extractor,
			CacheBackend: cfg.Cache.Backend,
			CacheTTL:     cfg.Cache.TTL.String(),
		}),
	})
	metrics.SetServerStartTime(time.Now().Unix())

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 10 * time.Second
	}

	// Register graceful shutdown handlers (LIFO order - last registered, first executed)
	// Handler 1: Flush logger (executed last)
	signals.OnShutdown(func(ctx context.Context) error {
		logger.Info("Flushing logger...")
		if err := logger.Sync(); err != nil {
			// Sync errors are often benign (stdout/stderr already closed)
			logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
		}
		return nil
	})

	// Handler 2: Close the cache store and metrics exporter
	signals.OnShutdown(func(ctx context.Context) error {
		if err := deps.Close(); err != nil {
			logger.Warn("Failed to close cache store", zap.Error(err))
		}
		if err := observability.ShutdownMetrics(); err != nil {
			logger.Warn("Failed to stop metrics exporter", zap.Error(err))
		}
		return nil
	})

	// Handler 3: Shutdown HTTP server (executed first)
	signals.OnShutdown(func(ctx context.Context) error {
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errwrap.WrapInternal(ctx, err, "server shutdown failed")
		}

		logger.Info("HTTP server stopped gracefully")
		return nil
	})

	applyReload := func(next *config.Config) {
		timelineHandler.SetDebug(next.Debug.Enabled)
		deps.Service.SetDebug(next.Debug.Enabled)
		observability.SetServerLevel(next.EffectiveLogLevel())
		logger.Info("Configuration reloaded",
			zap.String("file", viper.ConfigFileUsed()),
			zap.Bool("debug", next.Debug.Enabled),
			zap.String("log_level", next.EffectiveLogLevel()))
	}

	// Config reload handler (SIGHUP)
	signals.OnReload(func(ctx context.Context) error {
		logger.Info("Received SIGHUP: attempting config reload")

		next, err := config.Reload(ctx, viper.GetViper())
		if err != nil {
			logger.Error("Failed to reload config",
				zap.String("file", viper.ConfigFileUsed()),
				zap.Error(err))
			return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
		}
		applyReload(next)
		return nil
	})

	// Enable double-tap force quit (Ctrl+C within 2 seconds)
	if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
		Window:  2 * time.Second,
		Message: "Press Ctrl+C again within 2 seconds to force quit",
	}); err != nil {
		logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
	}

	// Watch the config file for edits while serving
	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	if viper.ConfigFileUsed() != "" {
		go func() {
			err := config.Watch(watchCtx, viper.GetViper(), applyReload, func(err error) {
				logger.Warn("Config reload rejected", zap.Error(err))
			})
			if err != nil {
				logger.Warn("Config watcher stopped", zap.Error(err))
			}
		}()
	}

	// Start server in background goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Start signal listener in background
	go func() {
		if err := signals.Listen(ctx); err != nil {
			logger.Error("Signal handler error", zap.Error(err))
			errChan <- err
		}
	}()

	// Wait for error or shutdown completion
	if err := <-errChan; err != nil {
		return errwrap.WrapInternal(ctx, err, "server error")
	}

	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "server port")
	serveCmd.Flags().BoolVar(&serverDebug, "debug", false, "debug mode (verbose logs, no Content-Type on query responses)")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("debug.enabled", serveCmd.Flags().Lookup("debug"))
}
