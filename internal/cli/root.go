// Package cli defines the command-line surface: one binary, one subcommand
// per process role.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"AlphaScout/pkg/config"
)

var (
	cfgFile  string
	logLevel string
	cfg      *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "alphascout",
	Short: "Opportunity signal pipeline: scouts, signal bus, persistence",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfg != nil {
			return nil
		}
		c, err := config.LoadWithEnv(cfgFile)
		if err != nil {
			return err
		}
		if logLevel != "" {
			c.Logging.Level = logLevel
		}
		cfg = c
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level defined in config")

	rootCmd.AddCommand(scoutCmd)
	rootCmd.AddCommand(persisterCmd)
	rootCmd.AddCommand(versionCmd)
}

func getConfig() *config.Config {
	if cfg == nil {
		panic("configuration not loaded; PersistentPreRunE not executed")
	}
	return cfg
}
