package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/newsdecades/newsdecades/internal/appid"
	"github.com/newsdecades/newsdecades/internal/config"
	"github.com/newsdecades/newsdecades/internal/core/extract"
	errwrap "github.com/newsdecades/newsdecades/internal/errors"
	"github.com/newsdecades/newsdecades/internal/server/handlers"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long: `Run the checks the server's readiness probe runs, without starting it:
app identity, extractor selection, and the cache store when it backs the cache.`,
	RunE: runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(ctx)
	if err != nil {
		return errwrap.WrapConfigInvalid(ctx, err, "config load failed")
	}

	manager := handlers.NewHealthManager(appid.CurrentBuild().Version)
	manager.RegisterChecker("app_identity", identityComplete(GetAppIdentity()))
	manager.RegisterChecker("extractor", handlers.HealthCheckFunc(func(context.Context) error {
		_, err := extract.New(cfg.Upstream.Extractor)
		return err
	}))
	if cfg.Cache.Backend == config.CacheBackendStore {
		manager.RegisterChecker("cache_store", handlers.HealthCheckFunc(func(ctx context.Context) error {
			db, err := openStore(ctx, cfg.Store)
			if err != nil {
				return err
			}
			defer db.Close() // nolint:errcheck // read-only probe
			return db.CheckHealth(ctx)
		}))
	}

	status, checks := manager.Run(ctx)

	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := table.NewWriter()
	tw.SetOutputMirror(cmd.OutOrStdout())
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Check", "Status"})
	var failing []string
	for _, name := range names {
		tw.AppendRow(table.Row{name, checks[name]})
		if checks[name] != handlers.StatusHealthy {
			failing = append(failing, name)
		}
	}
	tw.AppendFooter(table.Row{"overall", status})
	tw.Render()

	if status == handlers.StatusUnhealthy {
		return errwrap.NewConfigInvalidError(fmt.Sprintf("health checks failed: %s", strings.Join(failing, ", ")))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
