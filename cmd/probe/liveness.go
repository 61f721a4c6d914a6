package probe

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/go-ledger/internal/config"
	"github/chapool/go-ledger/internal/ledger/ethapp"
	"github/chapool/go-ledger/internal/util/command"
)

func newLiveness() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "liveness",
		Short: "Checks that the device answers",
		Long: `Checks that the device answers a configuration query.

Exits with 0 when the device answered and 1 otherwise.`,
		Run: func(cmd *cobra.Command, _ []string) {
			verbose, err := cmd.Flags().GetBool(verboseFlag)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to parse args")
			}

			cfg := config.DefaultServiceConfigFromEnv()

			err = command.WithDevice(cmd.Context(), cfg, func(ctx context.Context, app *ethapp.App) error {
				_, err := app.Configuration(ctx)
				return err
			})
			if err != nil {
				if verbose {
					log.Error().Err(err).Msg("Liveness probe failed")
				}
				os.Exit(1)
			}

			if verbose {
				//nolint:forbidigo // probe result is written to stdout
				fmt.Fprintln(cmd.OutOrStdout(), "Device is alive.")
			}
		},
	}

	cmd.Flags().BoolP(verboseFlag, "v", false, "Show verbose output.")

	return cmd
}
