package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var simulateCost string

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Feed a cost through the tracker as if it had been fetched",
	RunE: func(cmd *cobra.Command, args []string) error {
		cost, err := decimal.NewFromString(simulateCost)
		if err != nil {
			return fmt.Errorf("invalid --cost value: %w", err)
		}
		if cost.IsNegative() {
			return fmt.Errorf("--cost must not be negative")
		}
		return getApp().Simulate(cmd.Context(), cost)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateCost, "cost", "", "Recycle cost in TAO")
	_ = simulateCmd.MarkFlagRequired("cost")
}
