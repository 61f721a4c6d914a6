package device

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github/chapool/go-ledger/internal/config"
	"github/chapool/go-ledger/internal/ledger/ethapp"
	"github/chapool/go-ledger/internal/tokens"
	"github/chapool/go-ledger/internal/util/command"
)

const tickerFlag string = "ticker"

func newERC20() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "erc20",
		Short: "Provides a signed ERC-20 descriptor from the token registry to the device",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.DefaultServiceConfigFromEnv()

			ticker, err := cmd.Flags().GetString(tickerFlag)
			if err != nil {
				return err
			}

			chainID, err := cmd.Flags().GetUint32(chainIDFlag)
			if err != nil {
				return err
			}

			registry, err := loadRegistry(cfg.Tokens)
			if err != nil {
				return err
			}
			if registry == nil {
				return errors.New("no token registry configured (LEDGER_TOKENS_REGISTRY_FILE)")
			}

			info, err := registry.ByTicker(chainID, ticker)
			if err != nil {
				return err
			}

			return command.WithDevice(cmd.Context(), cfg, func(ctx context.Context, app *ethapp.App) error {
				if err := app.ProvideERC20TokenInfo(ctx, info); err != nil {
					return err
				}

				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Provided %s (0x%x) on chain %d\n", info.Ticker, info.Address, info.ChainID)
				return err
			})
		},
	}

	cmd.Flags().String(tickerFlag, "", "Token ticker")
	cmd.Flags().Uint32(chainIDFlag, 1, "Chain ID")
	_ = cmd.MarkFlagRequired(tickerFlag)

	return cmd
}

// loadRegistry returns nil when no registry file is configured
func loadRegistry(cfg config.Tokens) (*tokens.Registry, error) {
	if cfg.RegistryFile == "" {
		return nil, nil //nolint:nilnil // no registry is a valid configuration
	}

	return tokens.Load(cfg.RegistryFile)
}
