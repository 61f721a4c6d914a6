package emulator

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github/chapool/go-ledger/internal/config"
	"github/chapool/go-ledger/internal/util/command"
	"github/chapool/go-ledger/internal/wallet"
	"github/chapool/go-ledger/internal/wallet/keystore"
)

func newInit() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Encrypts the configured mnemonic into the emulator keystore",
		Long: `Encrypts LEDGER_EMULATOR_MNEMONIC into the keystore file named by
LEDGER_EMULATOR_KEYSTORE_PATH. Once created, the emulator unlocks the keystore
with a password instead of reading the mnemonic from the environment.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.DefaultServiceConfigFromEnv()
			command.ConfigureLogger(cfg.Logger)

			if cfg.Emulator.KeystorePath == "" {
				return errors.New("no keystore path configured (LEDGER_EMULATOR_KEYSTORE_PATH)")
			}

			keystoreService, err := keystore.NewService(cfg.Emulator.KeystorePath, nil)
			if err != nil {
				return err
			}

			ks, err := wallet.CreateKeystore(cmd.Context(), keystoreService, cfg.Emulator.Mnemonic, cfg.Emulator.Passphrase, wallet.TerminalPrompt)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Keystore %s written for 0x%s\n", ks.Path, ks.JSON.Address)
			return err
		},
	}
}
