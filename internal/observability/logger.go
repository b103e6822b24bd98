// Package observability owns the process-wide loggers and the telemetry
// system shared by the CLI and the HTTP server.
package observability

import (
	"fmt"
	"os"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
)

var (
	// CLILogger writes human-oriented output for one-shot commands.
	CLILogger *logging.Logger

	// ServerLogger writes JSON lines for the long-running server.
	ServerLogger *logging.Logger
)

// InitCLILogger sets up CLILogger. verbose lowers the threshold to debug.
func InitCLILogger(service string, verbose bool) {
	logger, err := logging.NewCLI(service)
	if err != nil {
		fatal("Failed to initialize CLI logger", err)
	}
	if verbose {
		logger.SetLevel(logging.DEBUG)
	}
	CLILogger = logger
}

// InitServerLogger sets up ServerLogger at level. A non-empty namespace is
// attached to every entry so logs line up with metric names.
func InitServerLogger(service, level string, namespace ...string) {
	static := map[string]any{}
	if len(namespace) > 0 && namespace[0] != "" {
		static["namespace"] = namespace[0]
	}

	logger, err := logging.New(serverConfig(service, normalizeLevel(level), static))
	if err != nil {
		fatal("Failed to initialize server logger", err)
	}
	ServerLogger = logger
}

func serverConfig(service, level string, static map[string]any) *logging.LoggerConfig {
	return &logging.LoggerConfig{
		Profile:      logging.ProfileStructured,
		DefaultLevel: level,
		Service:      service,
		Environment:  "production",
		StaticFields: static,
		Middleware: []logging.MiddlewareConfig{
			{Name: "correlation", Enabled: true, Order: 100, Config: map[string]any{}},
		},
		Sinks: []logging.SinkConfig{
			{
				Type:    "console",
				Format:  "json",
				Console: &logging.ConsoleSinkConfig{Stream: "stderr"},
			},
		},
		EnableCaller:     true,
		EnableStacktrace: true,
	}
}

// SetServerLevel changes the ServerLogger threshold, used when debug mode is
// toggled by a config reload.
func SetServerLevel(level string) {
	if ServerLogger == nil {
		return
	}
	switch normalizeLevel(level) {
	case "TRACE":
		ServerLogger.SetLevel(logging.TRACE)
	case "DEBUG":
		ServerLogger.SetLevel(logging.DEBUG)
	case "INFO":
		ServerLogger.SetLevel(logging.INFO)
	case "ERROR":
		ServerLogger.SetLevel(logging.ERROR)
	default:
		ServerLogger.SetLevel(logging.WARN)
	}
}

// normalizeLevel maps a config level name to its logging severity. Unknown
// names mean WARN.
func normalizeLevel(level string) string {
	switch l := strings.ToUpper(strings.TrimSpace(level)); l {
	case "TRACE", "DEBUG", "INFO", "ERROR":
		return l
	default:
		return "WARN"
	}
}

// fatal reports a logger setup failure on stderr. No logger exists yet, so
// this cannot go through cmd.ExitWithCode.
func fatal(msg string, err error) {
	code := foundry.ExitConfigInvalid
	fmt.Fprintf(os.Stderr, "FATAL: %s: %v\n", msg, err)
	if info, ok := foundry.GetExitCodeInfo(code); ok {
		fmt.Fprintf(os.Stderr, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)
		os.Exit(info.Code)
	}
	os.Exit(int(code))
}
