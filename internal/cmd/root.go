package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/newsdecades/newsdecades/internal/appid"
	"github.com/newsdecades/newsdecades/internal/config"
	"github.com/newsdecades/newsdecades/internal/observability"
)

var (
	cfgFile string
	verbose bool

	appIdentity *appid.Identity
)

// GetAppIdentity returns the identity loaded during command initialization.
func GetAppIdentity() *appid.Identity {
	return appIdentity
}

var rootCmd = &cobra.Command{
	Use:   filepath.Base(os.Args[0]),
	Short: "Decade-level frequency timelines from the news archive",
}

// Execute runs the command named on the command line.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Config loading may touch the global telemetry system; keep it silent
	// until serve starts the real exporter.
	if sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: false}); err == nil {
		telemetry.SetGlobalSystem(sys)
	}

	// Help text is rendered before OnInitialize runs.
	if identity, err := appid.Get(context.Background()); err == nil {
		appIdentity = identity
		rootCmd.Use = identity.BinaryName
		rootCmd.Short = identity.Description
		rootCmd.Long = fmt.Sprintf("%s - %s\n\nQuery the archive with `query`, serve timelines over HTTP with `serve`.",
			identity.BinaryName, identity.Description)
	}

	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/newsdecades/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
}

// initConfig layers defaults, environment, and the config file into viper.
func initConfig() {
	identity, err := appid.Get(context.Background())
	if err != nil {
		ExitWithCodeStderr(foundry.ExitFileNotFound, "Failed to load app identity", err)
	}
	appIdentity = identity

	observability.InitCLILogger(identity.BinaryName, verbose)
	logger := observability.CLILogger

	v := viper.GetViper()
	config.SetDefaults(v)
	if err := config.BindEnv(v, identity); err != nil {
		ExitWithCode(logger, foundry.ExitConfigInvalid, "Failed to bind environment", err)
	}

	if err := locateConfig(v, identity); err != nil {
		ExitWithCode(logger, foundry.ExitFileNotFound, "Could not resolve config location", err)
	}

	err = v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	switch {
	case err == nil:
		logger.Debug("Using config file", zap.String("path", v.ConfigFileUsed()))
	case errors.As(err, &notFound):
		logger.Debug("No config file found, using defaults and environment variables")
	default:
		logger.Warn("Error reading config file", zap.Error(err))
	}
}

// locateConfig points viper at --config, or else at the XDG config directory
// (falling back to ~/.newsdecades.yaml) plus ./config.
func locateConfig(v *viper.Viper, identity *appid.Identity) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		return nil
	}

	if dir := gfconfig.GetAppConfigDir(identity.ConfigName); dir != "" {
		v.AddConfigPath(dir)
		v.SetConfigName("config")
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		v.AddConfigPath(home)
		v.SetConfigName("." + identity.ConfigName)
	}
	v.AddConfigPath("./config")
	v.SetConfigType("yaml")
	return nil
}

// loadConfig decodes the layered settings into a Config.
func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx, viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
