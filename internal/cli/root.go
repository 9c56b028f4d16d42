package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"recycle-watch/internal/app"
	"recycle-watch/internal/config"
	"recycle-watch/internal/logging"
)

var (
	cfgFile   string
	envFile   string
	logLevel  string
	netuid    string
	appHandle *app.App
)

var rootCmd = &cobra.Command{
	Use:   "recyclewatch",
	Short: "Watch a Bittensor subnet registration cost and alert on price bands",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if appHandle != nil || cmd == versionCmd {
			return nil
		}

		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load env file: %w", err)
		}

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if cmd.Flags().Changed("netuid") {
			cfg.Subnet.NetUID = netuid
		}

		if err := cfg.Validate(); err != nil {
			return err
		}

		logger := logging.NewLogger(cfg.Logging)
		appHandle = app.NewApp(cfg, logger)
		return nil
	},
}

// exitError carries a process exit status without printing anything.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// Execute runs the root command.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	var exit *exitError
	if errors.As(err, &exit) {
		os.Exit(exit.code)
	}

	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Dotenv file loaded before configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level defined in config")
	rootCmd.PersistentFlags().StringVar(&netuid, "netuid", "20", "Subnet to watch (overrides subnet.netuid)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(appraiseCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(versionCmd)
}

func getApp() *app.App {
	if appHandle == nil {
		panic("application not initialized; PersistentPreRunE not executed")
	}
	return appHandle
}
