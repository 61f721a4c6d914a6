package device

import (
	"context"

	"github.com/spf13/cobra"
	"github/chapool/go-ledger/internal/config"
	"github/chapool/go-ledger/internal/ledger/ethapp"
	"github/chapool/go-ledger/internal/util/command"
)

func newConfig() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Prints the Ethereum application configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.DefaultServiceConfigFromEnv()

			return command.WithDevice(cmd.Context(), cfg, func(ctx context.Context, app *ethapp.App) error {
				appConfig, err := app.Configuration(ctx)
				if err != nil {
					return err
				}

				return printJSON(cmd.OutOrStdout(), appConfig)
			})
		},
	}
}
