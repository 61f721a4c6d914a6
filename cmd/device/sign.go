package device

import (
	"context"
	"encoding/hex"
	"math"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github/chapool/go-ledger/internal/config"
	"github/chapool/go-ledger/internal/ledger/ethapp"
	"github/chapool/go-ledger/internal/util/command"
	"github/chapool/go-ledger/internal/wallet/address"
	"github/chapool/go-ledger/internal/wallet/signer"
)

const (
	toFlag          string = "to"
	fromFlag        string = "from"
	valueFlag       string = "value"
	gasLimitFlag    string = "gas-limit"
	maxFeeFlag      string = "max-fee"
	priorityFeeFlag string = "priority-fee"
	nonceFlag       string = "nonce"
	dataFlag        string = "data"
)

type signOutput struct {
	From           string `json:"from"`
	TxHash         string `json:"txHash"`
	RawTransaction string `json:"rawTransaction"`
}

func newSign() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Signs an EIP-1559 transaction on the device",
		Long: `Signs an EIP-1559 transaction on the device and prints the raw signed transaction.

When a token registry is configured and the recipient is a known ERC-20 contract,
its descriptor is provided to the device first so the transfer can be displayed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.DefaultServiceConfigFromEnv()

			req, err := signRequestFromFlags(cmd)
			if err != nil {
				return err
			}

			registry, err := loadRegistry(cfg.Tokens)
			if err != nil {
				return err
			}
			if registry != nil {
				if req.ChainID < 0 || req.ChainID > math.MaxUint32 {
					return errors.Errorf("chain id %d out of range for token lookup", req.ChainID)
				}

				req.Resolution, err = registry.Resolution(uint32(req.ChainID), common.HexToAddress(req.To))
				if err != nil {
					return err
				}
			}

			return command.WithDevice(cmd.Context(), cfg, func(ctx context.Context, app *ethapp.App) error {
				addressService, err := address.NewService(app)
				if err != nil {
					return err
				}

				if req.DerivationPath, err = pathFromFlags(cmd, addressService); err != nil {
					return err
				}

				// the sender defaults to the address of the signing path
				if req.FromAddress == "" {
					own, err := addressService.DeviceAddress(ctx, req.DerivationPath, false)
					if err != nil {
						return err
					}
					req.FromAddress = own.Address
				}

				signerService, err := signer.NewService(app, addressService)
				if err != nil {
					return err
				}

				res, err := signerService.SignEVMTransaction(ctx, req)
				if err != nil {
					return err
				}

				return printJSON(cmd.OutOrStdout(), signOutput{
					From:           req.FromAddress,
					TxHash:         res.TxHash,
					RawTransaction: "0x" + hex.EncodeToString(res.RawTransaction),
				})
			})
		},
	}

	cmd.Flags().Int(indexFlag, 0, "Address index in m/44'/60'/0'/0/{index}")
	cmd.Flags().String(pathFlag, "", "Full derivation path, overrides --index")
	cmd.Flags().Int64(chainIDFlag, 1, "Chain ID")
	cmd.Flags().String(toFlag, "", "Recipient address")
	cmd.Flags().String(fromFlag, "", "Expected sender address, defaults to the address of the signing path")
	cmd.Flags().String(valueFlag, "0", "Value in wei")
	cmd.Flags().Uint64(gasLimitFlag, 21000, "Gas limit")
	cmd.Flags().String(maxFeeFlag, "", "Max fee per gas in wei")
	cmd.Flags().String(priorityFeeFlag, "", "Max priority fee per gas in wei")
	cmd.Flags().Uint64(nonceFlag, 0, "Nonce")
	cmd.Flags().String(dataFlag, "", "Call data (hex)")

	for _, f := range []string{toFlag, maxFeeFlag, priorityFeeFlag} {
		_ = cmd.MarkFlagRequired(f)
	}

	return cmd
}

func signRequestFromFlags(cmd *cobra.Command) (*signer.SignEVMRequest, error) {
	flags := cmd.Flags()
	req := &signer.SignEVMRequest{}

	var err error
	if req.ChainID, err = flags.GetInt64(chainIDFlag); err != nil {
		return nil, err
	}
	if req.To, err = flags.GetString(toFlag); err != nil {
		return nil, err
	}
	if req.FromAddress, err = flags.GetString(fromFlag); err != nil {
		return nil, err
	}
	if req.Value, err = flags.GetString(valueFlag); err != nil {
		return nil, err
	}
	if req.GasLimit, err = flags.GetUint64(gasLimitFlag); err != nil {
		return nil, err
	}
	if req.MaxFeePerGas, err = flags.GetString(maxFeeFlag); err != nil {
		return nil, err
	}
	if req.MaxPriorityFeePerGas, err = flags.GetString(priorityFeeFlag); err != nil {
		return nil, err
	}
	if req.Nonce, err = flags.GetUint64(nonceFlag); err != nil {
		return nil, err
	}

	data, err := flags.GetString(dataFlag)
	if err != nil {
		return nil, err
	}
	if data != "" {
		req.Data, err = hex.DecodeString(strings.TrimPrefix(data, "0x"))
		if err != nil {
			return nil, errors.Wrap(err, "invalid call data")
		}
	}

	return req, nil
}
