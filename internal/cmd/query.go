package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newsdecades/newsdecades/internal/core/timeline"
	"github.com/newsdecades/newsdecades/internal/observability"
	"github.com/newsdecades/newsdecades/internal/output"
)

var queryCmd = &cobra.Command{
	Use:   "query <term>",
	Short: "Fetch the decade timeline for a term",
	Long: `Fetch the archive timeline for a term and print its decade averages.

Formats: text (the raw response record, as served over HTTP), table, json,
yaml, markdown, bars. Without --output-format, terminals get a table and
pipes get text.

Examples:
  newsdecades query "telegraph"
  newsdecades query radio --output-format bars
  newsdecades query television -o json --no-cache`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().StringP("output-format", "o", "", "Output format: text, table, json, yaml, markdown, bars")
	queryCmd.Flags().String("out", "", "Write output to file (default stdout)")
	queryCmd.Flags().Bool("no-cache", false, "Skip the configured cache")
}

func runQuery(cmd *cobra.Command, args []string) error {
	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return err
	}
	outPath, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd.Context())
	if err != nil {
		return err
	}

	deps, err := buildService(cmd.Context(), cfg, observability.CLILogger, noCache)
	if err != nil {
		return err
	}
	defer deps.Close() // nolint:errcheck // best-effort cleanup

	result := deps.Service.Query(cmd.Context(), args[0])
	observability.CLILogger.Debug("Query finished",
		zap.String("term", result.Term),
		zap.Bool("from_cache", result.FromCache),
		zap.Int("upstream_status", result.Upstream),
		zap.Duration("fetch_duration", result.FetchDuration))

	dest, closeDest, err := openDestination(cmd, outPath)
	if err != nil {
		return err
	}
	defer closeDest() // nolint:errcheck // best-effort cleanup

	if err := renderTimeline(dest, format, result); err != nil {
		return err
	}

	if result.Err != nil {
		return fmt.Errorf("query %q failed (%s): %w", result.Term, result.Kind(), result.Err)
	}
	return nil
}

func renderTimeline(w io.Writer, format output.Format, result timeline.Result) error {
	format = output.Resolve(format, output.IsTerminal(w))

	rendered, err := output.NewFormatter(format).FormatTimeline(output.FromResult(result))
	if err != nil {
		return err
	}
	if !strings.HasSuffix(rendered, "\n") {
		rendered += "\n"
	}
	_, err = io.WriteString(w, rendered)
	return err
}
