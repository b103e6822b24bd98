package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newsdecades/newsdecades/internal/observability"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the persistent timeline cache",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired entries from the cache store",
	Long: `Delete expired rows from the cache store configured under store.*.
The store is used when cache.backend is "store"; this command works on it
regardless of the active backend.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.Context())
		if err != nil {
			return err
		}

		db, err := openStore(cmd.Context(), cfg.Store)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		purged, err := db.PurgeExpired(cmd.Context())
		if err != nil {
			return err
		}
		remaining, err := db.Count(cmd.Context())
		if err != nil {
			return err
		}

		observability.CLILogger.Debug("Cache purged",
			zap.String("driver", db.Driver()),
			zap.Int64("purged", purged),
			zap.Int64("remaining", remaining))
		fmt.Fprintf(cmd.OutOrStdout(), "purged %d expired entries, %d remaining\n", purged, remaining)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}
