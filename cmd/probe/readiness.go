package probe

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/go-ledger/internal/config"
	"github/chapool/go-ledger/internal/ledger/ethapp"
	"github/chapool/go-ledger/internal/util/command"
	"golang.org/x/mod/semver"
)

func newReadiness() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "readiness",
		Short: "Checks that the device runs a supported Ethereum application",
		Long: `Checks that the device answers and that its Ethereum application is at
least LEDGER_PROBE_MIN_VERSION.

Exits with 0 when ready and 1 otherwise.`,
		Run: func(cmd *cobra.Command, _ []string) {
			verbose, err := cmd.Flags().GetBool(verboseFlag)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to parse args")
			}

			cfg := config.DefaultServiceConfigFromEnv()

			var version string
			err = command.WithDevice(cmd.Context(), cfg, func(ctx context.Context, app *ethapp.App) error {
				appConfig, err := app.Configuration(ctx)
				if err != nil {
					return err
				}

				version = appConfig.Version
				return CheckVersion(version, cfg.Probe.MinVersion)
			})
			if err != nil {
				if verbose {
					log.Error().Err(err).Msg("Readiness probe failed")
				}
				os.Exit(1)
			}

			if verbose {
				//nolint:forbidigo // probe result is written to stdout
				fmt.Fprintf(cmd.OutOrStdout(), "Device is ready (app version %s).\n", version)
			}
		},
	}

	cmd.Flags().BoolP(verboseFlag, "v", false, "Show verbose output.")

	return cmd
}

// CheckVersion fails when version is below minVersion; an empty minVersion accepts any version
func CheckVersion(version string, minVersion string) error {
	if minVersion == "" {
		return nil
	}

	v := canonical(version)
	if !semver.IsValid(v) {
		return errors.Errorf("device reported invalid app version %q", version)
	}

	minimum := canonical(minVersion)
	if !semver.IsValid(minimum) {
		return errors.Errorf("invalid minimum app version %q", minVersion)
	}

	if semver.Compare(v, minimum) < 0 {
		return errors.Errorf("app version %s is below required %s", version, minVersion)
	}

	return nil
}

func canonical(version string) string {
	if len(version) > 0 && version[0] != 'v' {
		return "v" + version
	}

	return version
}
