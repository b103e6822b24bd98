package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/newsdecades/newsdecades/internal/core/average"
	"github.com/newsdecades/newsdecades/internal/core/chartenc"
	"github.com/newsdecades/newsdecades/internal/core/series"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <payload>",
	Short: "Decode an extended-encoding chart payload",
	Long: `Decode a chart payload (two characters per value, alphabet A-Z a-z 0-9 - .)
and print the values. With --period, also print the truncated mean of each
window of that many values.

Examples:
  newsdecades decode AAABAC
  newsdecades decode "$(cat payload.txt)" --period 10`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		period, err := cmd.Flags().GetInt("period")
		if err != nil {
			return err
		}

		points, averages, err := decodePayload(args[0], period)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, joinInts(points))
		if averages != nil {
			fmt.Fprintln(out, joinInts(averages))
		}
		return nil
	},
}

var encodeCmd = &cobra.Command{
	Use:   "encode <value>...",
	Short: "Encode integers into the extended chart encoding",
	Long: `Encode integers in [0, 4095] as a chart payload. Useful for building
fixtures and checking decode output.

Example:
  newsdecades encode 0 26 4095`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		values := make([]int, 0, len(args))
		for _, arg := range args {
			for _, field := range strings.Split(arg, ",") {
				if strings.TrimSpace(field) == "" {
					continue
				}
				v, err := strconv.Atoi(strings.TrimSpace(field))
				if err != nil {
					return fmt.Errorf("invalid value %q: %w", field, err)
				}
				values = append(values, v)
			}
		}

		encoded, err := chartenc.Encode(values)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), encoded)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(encodeCmd)

	decodeCmd.Flags().Int("period", 0, "Also average windows of this many values (0 disables)")
}

// decodePayload decodes payload and, when period is positive, averages it.
func decodePayload(payload string, period int) (points, averages []int, err error) {
	stream, err := chartenc.Decode(strings.TrimSpace(payload))
	if err != nil {
		return nil, nil, err
	}
	points = stream.Collect()
	if period <= 0 {
		return points, nil, nil
	}

	windows, err := average.Windows(series.FromSlice(points), period)
	if err != nil {
		return nil, nil, err
	}
	return points, windows.Collect(), nil
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
