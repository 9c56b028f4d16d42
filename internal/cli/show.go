package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"recycle-watch/internal/app"
)

var (
	showLimit int
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display recent recycle readings",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ShowOptions{
			Limit: showLimit,
		}

		return getApp().Show(cmd.Context(), opts, cmd.OutOrStdout())
	},
}

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print the persisted notification flags",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ShowState(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of readings to display")
}
