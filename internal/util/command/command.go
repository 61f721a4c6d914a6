package command

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/go-ledger/internal/config"
	"github/chapool/go-ledger/internal/emulator"
	"github/chapool/go-ledger/internal/ledger/ethapp"
	"github/chapool/go-ledger/internal/ledger/transport"
	"github/chapool/go-ledger/internal/metrics"
	"github/chapool/go-ledger/internal/wallet"
	"github/chapool/go-ledger/internal/wallet/keystore"
	"github/chapool/go-ledger/internal/wallet/seed"
)

// NewSubcommandGroup creates a command that only groups subcommands and prints its help when run
func NewSubcommandGroup(use string, subcommands ...*cobra.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: use + " related subcommands",
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	cmd.AddCommand(subcommands...)

	return cmd
}

// ConfigureLogger applies the logger config to the global zerolog logger
func ConfigureLogger(cfg config.LoggerServer) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.SetGlobalLevel(cfg.Level)

	if cfg.PrettyPrintConsole {
		log.Logger = log.Output(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
			w.Out = os.Stderr
			w.TimeFormat = "15:04:05"
		}))
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

// WithDevice opens the device configured in cfg, runs fn against its Ethereum application and
// releases the device afterwards. Device.Timeout bounds the whole run when set.
func WithDevice(ctx context.Context, cfg config.Server, fn func(ctx context.Context, app *ethapp.App) error) error {
	ConfigureLogger(cfg.Logger)

	if cfg.Device.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Device.Timeout)
		defer cancel()
	}

	device, err := OpenDevice(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := device.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close device")
		}
	}()

	return fn(ctx, ethapp.New(transport.Instrument(device, metrics.New())))
}

// OpenDevice opens the configured transport, building an in-process emulator when asked to
//
//nolint:ireturn // Returning interface is intentional, the concrete transport depends on config
func OpenDevice(ctx context.Context, cfg config.Server) (transport.Device, error) {
	if !strings.EqualFold(cfg.Device.Transport, config.TransportEmulator) {
		device, err := transport.Open(ctx, cfg.Device)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open device")
		}

		return device, nil
	}

	seedManager, err := InitSeed(ctx, cfg.Emulator)
	if err != nil {
		return nil, err
	}

	device, err := emulator.NewDevice(cfg.Emulator, seedManager, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create emulator")
	}

	return device, nil
}

// InitSeed loads the emulator seed from the keystore when one is configured and from the
// configured mnemonic otherwise
//
//nolint:ireturn // Returning interface is intentional
func InitSeed(ctx context.Context, cfg config.Emulator) (seed.Manager, error) {
	var keystoreService keystore.Service
	if cfg.KeystorePath != "" {
		var err error
		keystoreService, err = keystore.NewService(cfg.KeystorePath, nil)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create keystore service")
		}
	}

	seedManager := seed.NewManager()
	if err := wallet.InitializeSeed(ctx, seedManager, keystoreService, cfg.Mnemonic, cfg.Passphrase, wallet.TerminalPrompt); err != nil {
		return nil, errors.Wrap(err, "failed to initialize seed")
	}

	return seedManager, nil
}
