package cli

import (
	"github.com/spf13/cobra"
)

// appraiseCmd mirrors `btcli s appraise`, including its unconditional
// non-zero exit status.
var appraiseCmd = &cobra.Command{
	Use:           "appraise",
	Short:         "Print the current recycle cost of the subnet",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := getApp()
		if err := a.Appraise(cmd.Context(), a.Config.Subnet.NetUID, cmd.OutOrStdout()); err != nil {
			cmd.PrintErrln(err)
		}
		return &exitError{code: 1}
	},
}
