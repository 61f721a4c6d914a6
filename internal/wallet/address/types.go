package address

import (
	"context"

	"github/chapool/go-ledger/internal/ledger/ethapp"
)

// Service resolves addresses held by the signing device
type Service interface {
	// DeviceAddress asks the device for the address at path and checks it against the returned public key
	DeviceAddress(ctx context.Context, path string, display bool) (*DeviceAddress, error)

	// GetBIP44Path gets BIP44 path (fixed format for EVM chains)
	GetBIP44Path(addressIndex int) string

	// ParsePath parses a derivation path string (e.g., "m/44'/60'/0'/0/0")
	ParsePath(path string) (ethapp.BIP44Path, error)
}

// Device is the subset of the device application the address service needs
type Device interface {
	Address(ctx context.Context, path ethapp.BIP44Path, enableDisplay *bool, enableChainCode *bool) (*ethapp.Address, error)
}

// DeviceAddress is an address reported by the device
type DeviceAddress struct {
	Path      string
	Address   string // EIP-55 checksummed, 0x prefixed
	PublicKey []byte // uncompressed secp256k1 key
	ChainCode []byte
}
