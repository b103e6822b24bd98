package cmd

import (
	"fmt"
	"runtime"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"

	"github.com/newsdecades/newsdecades/internal/appid"
)

var extended bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version information. Use --extended for build, Go, Gofulmen, and Crucible details.",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		build := appid.CurrentBuild()

		fmt.Fprintf(out, "%s %s\n", GetAppIdentity().BinaryName, build.Version)
		if !extended {
			return nil
		}

		versions := crucible.GetVersion()
		fmt.Fprintf(out, "Commit: %s\nBuilt: %s\nGo: %s\n\n", build.Commit, build.Date, runtime.Version())
		fmt.Fprintf(out, "Gofulmen: %s\nCrucible: %s\n", versions.Gofulmen, versions.Crucible)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVarP(&extended, "extended", "e", false, "show extended version information")
}
