// Package cli implements the atlasctl command line. It runs the pipeline
// jobs inline against the configured backend and offers inspection
// commands for the stored index.
package cli

import (
	"os"
	"strings"

	"github.com/OFFIS-RIT/atlas/backend/internal/config"
	"github.com/OFFIS-RIT/atlas/backend/internal/util"
	"github.com/OFFIS-RIT/atlas/backend/pkg/logger"
	"github.com/OFFIS-RIT/atlas/backend/pkg/logger/console"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:           "atlasctl",
	Short:         "Manage the corpus index, taxonomy and claim resolution",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		util.LoadEnv()
		logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
			Debug: viper.GetBool("debug"),
		}))
		cfg = config.Load()
		cfg.Debug = viper.GetBool("debug")
		if viper.GetString("backend") != "" {
			cfg.Backend = viper.GetString("backend")
		}
		return cfg.Validate()
	},
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("Command failed", "err", err)
		os.Exit(1)
	}
}

func init() {
	viper.SetEnvPrefix("atlas")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("backend", "", "store backend (postgres or sqlite)")
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("backend", rootCmd.PersistentFlags().Lookup("backend"))
}
