package emulator_test

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/stretchr/testify/require"
	"github/chapool/go-ledger/internal/config"
	"github/chapool/go-ledger/internal/emulator"
	"github/chapool/go-ledger/internal/ledger/ethapp"
	"github/chapool/go-ledger/internal/metrics"
	"github/chapool/go-ledger/internal/wallet/seed"
)

//nolint:dupword // Test mnemonic with repeated words
const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

const testAddress = "0x9858EfFD232B4033E47d90003D41EC34EcaEda94"

type fixture struct {
	cfg      config.Server
	seed     seed.Manager
	tokenKey *secp256k1.PrivateKey
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	tokenKey, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)

	sm := seed.NewManager()
	require.NoError(t, sm.Initialize(testMnemonic, ""))

	return &fixture{
		cfg: config.Server{
			Emulator: config.Emulator{
				ListenHTTP:                 "127.0.0.1:0",
				Version:                    "1.10.2",
				ArbitraryDataEnabled:       true,
				ERC20ProvisioningNecessary: true,
				TrustedTokenKey:            hex.EncodeToString(tokenKey.PubKey().SerializeUncompressed()),
			},
		},
		seed:     sm,
		tokenKey: tokenKey,
	}
}

func (f *fixture) device(t *testing.T) *emulator.Device {
	t.Helper()

	d, err := emulator.NewDevice(f.cfg.Emulator, f.seed, metrics.New())
	require.NoError(t, err)

	return d
}

func (f *fixture) app(t *testing.T) *ethapp.App {
	t.Helper()

	return ethapp.New(f.device(t))
}

func (f *fixture) signToken(info ethapp.ERC20TokenInfo) ethapp.ERC20TokenInfo {
	hash := sha256.Sum256(info.SignedMessage())
	info.Signature = ecdsa.Sign(f.tokenKey, hash[:]).Serialize()
	return info
}

func boolPtr(b bool) *bool {
	return &b
}
