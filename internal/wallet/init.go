package wallet

import (
	"context"
	"fmt"
	"os"

	"github/chapool/go-ledger/internal/ledger/ethapp"
	"github/chapool/go-ledger/internal/wallet/address"
	"github/chapool/go-ledger/internal/wallet/keystore"
	"github/chapool/go-ledger/internal/wallet/seed"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

const minPasswordLength = 8

// ErrKeystoreNotFound is returned when unlocking a keystore that was never created
var ErrKeystoreNotFound = errors.New("keystore not found")

// PasswordPrompt reads a secret from the operator
type PasswordPrompt func(prompt string) (string, error)

// CreateKeystore encrypts mnemonic into a new keystore file.
// The password is read twice through prompt. The first account derived from
// mnemonic and passphrase is stored alongside so a later unlock can be verified.
func CreateKeystore(ctx context.Context, keystoreService keystore.Service, mnemonic string, passphrase string, prompt PasswordPrompt) (*keystore.Keystore, error) {
	log := log.With().Str("component", "wallet_init").Logger()

	exists, err := keystoreService.Exists(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to check keystore existence")
	}
	if exists {
		return nil, errors.New("keystore already exists")
	}

	password, err := prompt(fmt.Sprintf("Enter password for keystore (min %d characters): ", minPasswordLength))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read password")
	}

	if len(password) < minPasswordLength {
		return nil, errors.Errorf("password must be at least %d characters", minPasswordLength)
	}

	passwordConfirm, err := prompt("Confirm password: ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to read password confirmation")
	}

	if password != passwordConfirm {
		return nil, errors.New("passwords do not match")
	}

	seedManager := seed.NewManager()
	if err := seedManager.Initialize(mnemonic, passphrase); err != nil {
		return nil, errors.Wrap(err, "failed to initialize seed manager")
	}
	defer seedManager.Clear()

	verificationAddress, err := DeriveVerificationAddress(seedManager)
	if err != nil {
		return nil, err
	}

	ks, err := keystoreService.CreateKeystore(ctx, mnemonic, password, verificationAddress)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create keystore")
	}

	log.Info().Str("address", verificationAddress).Msg("Keystore created successfully")

	return ks, nil
}

// InitializeSeed loads the device seed.
// Without a keystore service the configured mnemonic is used as is; otherwise the keystore
// is unlocked with a password read through prompt and checked against its stored address.
func InitializeSeed(ctx context.Context, seedManager seed.Manager, keystoreService keystore.Service, mnemonic string, passphrase string, prompt PasswordPrompt) error {
	log := log.With().Str("component", "wallet_init").Logger()

	if keystoreService == nil {
		if err := seedManager.Initialize(mnemonic, passphrase); err != nil {
			return errors.Wrap(err, "failed to initialize seed manager")
		}

		log.Warn().Msg("Seed initialized from plain-text mnemonic")
		return nil
	}

	exists, err := keystoreService.Exists(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check keystore existence")
	}
	if !exists {
		return ErrKeystoreNotFound
	}

	log.Info().Msg("Keystore found. Please enter password to unlock...")

	password, err := prompt("Enter keystore password: ")
	if err != nil {
		return errors.Wrap(err, "failed to read password")
	}

	//nolint:varnamelen // ks is a common abbreviation for keystore
	ks, err := keystoreService.GetKeystore(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get keystore")
	}

	decrypted, err := keystoreService.DecryptMnemonic(ctx, ks, password)
	if err != nil {
		return errors.Wrap(err, "failed to decrypt keystore (invalid password?)")
	}

	if err := seedManager.Initialize(decrypted, passphrase); err != nil {
		return errors.Wrap(err, "failed to initialize seed manager")
	}

	valid, err := VerifyKeystoreAddress(ctx, seedManager, ks)
	if err != nil {
		seedManager.Clear()
		return errors.Wrap(err, "failed to verify keystore")
	}

	if !valid {
		seedManager.Clear()
		return errors.New("keystore verification failed: derived address does not match stored address (wrong passphrase?)")
	}

	log.Info().Msg("Seed manager initialized successfully")

	return nil
}

// TerminalPrompt prompts for password input (hides input)
//
//nolint:forbidigo // Password input requires direct terminal I/O
func TerminalPrompt(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	passwordBytes, err := term.ReadPassword(int(os.Stdin.Fd())) //nolint:gosec // fd fits int
	if err != nil {
		return "", errors.Wrap(err, "failed to read password from terminal")
	}

	fmt.Fprintln(os.Stderr)

	return string(passwordBytes), nil
}

// DeriveVerificationAddress derives the account used to check a keystore unlock
func DeriveVerificationAddress(seedManager seed.Manager) (string, error) {
	s := seedManager.GetSeed()
	if s == nil {
		return "", errors.New("seed not initialized")
	}

	addr, err := address.DeriveAddress(s, ethapp.DefaultPath(VerificationAddressIndex).Components())
	if err != nil {
		return "", errors.Wrap(err, "failed to derive verification address")
	}

	return addr, nil
}
