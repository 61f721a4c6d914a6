package wallet

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github/chapool/go-ledger/internal/util"
	"github/chapool/go-ledger/internal/wallet/keystore"
	"github/chapool/go-ledger/internal/wallet/seed"
)

const (
	// VerificationAddressIndex is the address index used for password verification
	VerificationAddressIndex = 0
)

// VerifyKeystoreAddress compares the verification address derived from the loaded seed with
// the one stored in the keystore. Keystores without a stored address always pass.
func VerifyKeystoreAddress(ctx context.Context, seedManager seed.Manager, ks *keystore.Keystore) (bool, error) {
	log := util.LogFromContext(ctx).With().Str("component", "keystore_verification").Logger()

	if ks == nil || ks.JSON == nil {
		return false, errors.New("keystore is empty")
	}

	stored := ks.JSON.Address
	if stored == "" {
		log.Info().Msg("No verification address stored in keystore")
		return true, nil
	}

	derived, err := DeriveVerificationAddress(seedManager)
	if err != nil {
		log.Error().Err(err).Msg("Failed to derive verification address")
		return false, err
	}

	if !strings.EqualFold(strings.TrimPrefix(derived, "0x"), strings.TrimPrefix(stored, "0x")) {
		log.Warn().
			Str("derived", derived).
			Str("stored", stored).
			Msg("Keystore verification failed: addresses do not match")
		return false, nil
	}

	return true, nil
}
