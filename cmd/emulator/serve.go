package emulator

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/go-ledger/internal/config"
	"github/chapool/go-ledger/internal/emulator"
	"github/chapool/go-ledger/internal/util/command"
)

const shutdownTimeout = 10 * time.Second

func newServe() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serves the software device over the TCP and HTTP bridge protocols",
		Long: `Serves the software device over the TCP and HTTP bridge protocols.

Requires configuration through ENV. When LEDGER_EMULATOR_KEYSTORE_PATH is set
the keystore has to exist (see "emulator init") and is unlocked with a password.`,
		Run: func(cmd *cobra.Command, _ []string) {
			runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) {
	cfg := config.DefaultServiceConfigFromEnv()
	command.ConfigureLogger(cfg.Logger)

	seedManager, err := command.InitSeed(ctx, cfg.Emulator)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize seed")
	}
	defer seedManager.Clear()

	s, err := emulator.InitNewServer(cfg, seedManager)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize emulator")
	}

	go func() {
		if err := s.Start(); err != nil {
			if errors.Is(err, http.ErrServerClosed) {
				log.Info().Msg("Emulator closed")
			} else {
				log.Fatal().Err(err).Msg("Failed to start emulator")
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if errs := s.Shutdown(ctx); len(errs) > 0 {
		log.Error().Errs("shutdownErrors", errs).Msg("Failed to gracefully shut down emulator")
	}
}
