package device

import (
	"context"
	"encoding/hex"

	"github.com/spf13/cobra"
	"github/chapool/go-ledger/internal/config"
	"github/chapool/go-ledger/internal/ledger/ethapp"
	"github/chapool/go-ledger/internal/util/command"
	"github/chapool/go-ledger/internal/wallet/address"
)

const displayFlag string = "display"

type addressOutput struct {
	Path      string `json:"path"`
	Address   string `json:"address"`
	PublicKey string `json:"publicKey"`
	ChainCode string `json:"chainCode"`
}

func newAddress() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "address",
		Short: "Prints the address of a derivation path, verified against its public key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.DefaultServiceConfigFromEnv()

			return command.WithDevice(cmd.Context(), cfg, func(ctx context.Context, app *ethapp.App) error {
				addressService, err := address.NewService(app)
				if err != nil {
					return err
				}

				path, err := pathFromFlags(cmd, addressService)
				if err != nil {
					return err
				}

				display, err := cmd.Flags().GetBool(displayFlag)
				if err != nil {
					return err
				}

				result, err := addressService.DeviceAddress(ctx, path, display)
				if err != nil {
					return err
				}

				return printJSON(cmd.OutOrStdout(), addressOutput{
					Path:      result.Path,
					Address:   result.Address,
					PublicKey: hex.EncodeToString(result.PublicKey),
					ChainCode: hex.EncodeToString(result.ChainCode),
				})
			})
		},
	}

	cmd.Flags().Int(indexFlag, 0, "Address index in m/44'/60'/0'/0/{index}")
	cmd.Flags().String(pathFlag, "", "Full derivation path, overrides --index")
	cmd.Flags().Bool(displayFlag, false, "Ask the device to display the address for confirmation")

	return cmd
}

func pathFromFlags(cmd *cobra.Command, addressService address.Service) (string, error) {
	path, err := cmd.Flags().GetString(pathFlag)
	if err != nil {
		return "", err
	}
	if path != "" {
		return path, nil
	}

	index, err := cmd.Flags().GetInt(indexFlag)
	if err != nil {
		return "", err
	}

	return addressService.GetBIP44Path(index), nil
}
