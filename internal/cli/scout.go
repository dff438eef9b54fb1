package cli

import (
	"github.com/spf13/cobra"

	"AlphaScout/internal/di"
)

var scoutCmd = &cobra.Command{
	Use:       "scout <variant>",
	Short:     "Run one scout process (market, defi, chain, contract or sentiment)",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"market", "defi", "chain", "contract", "sentiment"},
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := di.InitializeScout(getConfig(), args[0])
		if err != nil {
			return err
		}
		return app.Run()
	},
}
