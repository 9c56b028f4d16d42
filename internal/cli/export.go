package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"recycle-watch/internal/app"
)

var (
	exportFrom      string
	exportTo        string
	exportSince     time.Duration
	exportPNGPath   string
	exportCSVPath   string
	exportMaxPoints int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recycle readings as CSV and/or a PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportSince > 0 && exportFrom != "" {
			return fmt.Errorf("--since and --from are mutually exclusive")
		}

		opts := app.ExportOptions{
			PNGPath:   exportPNGPath,
			CSVPath:   exportCSVPath,
			MaxPoints: exportMaxPoints,
		}

		to, err := parseTimestamp("to", exportTo)
		if err != nil {
			return err
		}
		opts.To = to

		from, err := parseTimestamp("from", exportFrom)
		if err != nil {
			return err
		}
		opts.From = from

		if exportSince > 0 {
			end := time.Now().UTC()
			if to != nil {
				end = *to
			}
			start := end.Add(-exportSince)
			opts.From = &start
		}

		return getApp().Export(cmd.Context(), opts)
	},
}

func parseTimestamp(flag, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s value: %w", flag, err)
	}
	return &t, nil
}

func init() {
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "Start timestamp (RFC3339, inclusive)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "End timestamp (RFC3339, exclusive)")
	exportCmd.Flags().DurationVar(&exportSince, "since", 0, "Export the window ending at --to (or now) of this length, e.g. 24h")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Maximum readings to export (defaults to config)")
}
