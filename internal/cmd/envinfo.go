package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newsdecades/newsdecades/internal/appid"
	"github.com/newsdecades/newsdecades/internal/config"
	"github.com/newsdecades/newsdecades/internal/observability"
)

var envInfoCmd = &cobra.Command{
	Use:   "envinfo",
	Short: "Display environment information",
	Long:  "Display comprehensive environment, configuration, and version information.",
	Run: func(cmd *cobra.Command, args []string) {
		version := crucible.GetVersion()
		log := observability.CLILogger

		log.Info("=== newsdecades Environment Information ===")
		log.Info("")

		// Application Info
		identity := GetAppIdentity()
		build := appid.CurrentBuild()
		log.Info("Application:")
		log.Info("  Name:       " + identity.BinaryName)
		log.Info("  Version:    " + build.Version)
		log.Info("  Commit:     " + build.Commit)
		log.Info("  Built:      " + build.Date)
		log.Info("")

		// SSOT Info
		log.Info("SSOT:")
		log.Info("  Gofulmen:   "+version.Gofulmen, zap.String("gofulmen_version", version.Gofulmen))
		log.Info("  Crucible:   "+version.Crucible, zap.String("crucible_version", version.Crucible))
		log.Info("")

		// Runtime Info
		log.Info("Runtime:")
		log.Info("  Go Version: "+runtime.Version(), zap.String("go_version", runtime.Version()))
		log.Info("  GOOS:       "+runtime.GOOS, zap.String("goos", runtime.GOOS))
		log.Info("  GOARCH:     "+runtime.GOARCH, zap.String("goarch", runtime.GOARCH))
		log.Info(fmt.Sprintf("  NumCPU:     %d", runtime.NumCPU()), zap.Int("num_cpu", runtime.NumCPU()))
		log.Info("")

		cfg, err := loadConfig(cmd.Context())
		if err != nil {
			log.Warn("Config load failed", zap.Error(err))
			return
		}

		// Configuration
		log.Info("Configuration:")
		log.Info("  Server Host:    "+cfg.Server.Host, zap.String("host", cfg.Server.Host))
		log.Info(fmt.Sprintf("  Server Port:    %d", cfg.Server.Port), zap.Int("port", cfg.Server.Port))
		log.Info("  Log Level:      "+cfg.EffectiveLogLevel(), zap.String("log_level", cfg.EffectiveLogLevel()))
		log.Info(fmt.Sprintf("  Debug:          %t", cfg.Debug.Enabled), zap.Bool("debug", cfg.Debug.Enabled))
		log.Info(fmt.Sprintf("  Metrics Port:   %d", cfg.Metrics.Port), zap.Int("metrics_port", cfg.Metrics.Port))
		log.Info("  Config File:    "+config.DefaultConfigPath(), zap.String("config_file", config.DefaultConfigPath()))
		log.Info("")

		// Upstream
		log.Info("Upstream:")
		log.Info("  URL Template:   "+cfg.Upstream.URLTemplate, zap.String("url_template", cfg.Upstream.URLTemplate))
		log.Info("  Timeout:        "+cfg.Upstream.Timeout.String(), zap.Duration("timeout", cfg.Upstream.Timeout))
		log.Info("  Extractor:      "+cfg.Upstream.Extractor, zap.String("extractor", cfg.Upstream.Extractor))
		log.Info("")

		// Cache
		log.Info("Cache:")
		log.Info("  Backend:        "+cfg.Cache.Backend, zap.String("cache_backend", cfg.Cache.Backend))
		log.Info("  TTL:            "+cfg.Cache.TTL.String(), zap.Duration("cache_ttl", cfg.Cache.TTL))
		log.Info(fmt.Sprintf("  Max Entries:    %d", cfg.Cache.MaxEntries), zap.Int("cache_max_entries", cfg.Cache.MaxEntries))
		log.Info("  DB Driver:      "+cfg.Store.Driver, zap.String("db_driver", cfg.Store.Driver))
		if strings.TrimSpace(cfg.Store.URL) != "" {
			log.Info("  DB URL:         "+cfg.Store.URL, zap.String("db_url", cfg.Store.URL))
		} else {
			log.Info("  DB Path:        "+cfg.Store.Path, zap.String("db_path", cfg.Store.Path))
		}
		log.Info("")

		log.Info("=== End Environment Information ===")
	},
}

func init() {
	rootCmd.AddCommand(envInfoCmd)
}
