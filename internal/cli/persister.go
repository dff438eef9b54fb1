package cli

import (
	"github.com/spf13/cobra"

	"AlphaScout/internal/di"
)

var persisterCmd = &cobra.Command{
	Use:   "persister",
	Short: "Run the persistence consumer draining the signal queue into the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := di.InitializePersister(getConfig())
		if err != nil {
			return err
		}
		return app.Run()
	},
}
