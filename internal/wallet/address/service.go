package address

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github/chapool/go-ledger/internal/ledger/ethapp"
	"github/chapool/go-ledger/internal/util"
)

type service struct {
	device Device
}

// NewService creates a new AddressService
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewService(device Device) (Service, error) {
	if device == nil {
		return nil, errors.New("device is required")
	}

	return &service{
		device: device,
	}, nil
}

// DeviceAddress asks the device for the address at path
func (s *service) DeviceAddress(ctx context.Context, path string, display bool) (*DeviceAddress, error) {
	log := util.LogFromContext(ctx)

	bip44Path, err := s.ParsePath(path)
	if err != nil {
		return nil, err
	}

	withChainCode := true
	result, err := s.device.Address(ctx, bip44Path, &display, &withChainCode)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get address from device")
	}

	address, err := verifyAddress(result)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Device returned inconsistent address")
		return nil, err
	}

	return &DeviceAddress{
		Path:      bip44Path.String(),
		Address:   address.Hex(),
		PublicKey: result.PublicKey,
		ChainCode: result.ChainCode,
	}, nil
}

// verifyAddress checks that the reported address belongs to the reported public key
func verifyAddress(result *ethapp.Address) (common.Address, error) {
	pub, err := crypto.UnmarshalPubkey(result.PublicKey)
	if err != nil {
		return common.Address{}, errors.Wrap(err, "invalid public key from device")
	}

	derived := crypto.PubkeyToAddress(*pub)
	reported := result.Hex()
	if !common.IsHexAddress(reported) {
		return common.Address{}, errors.Errorf("invalid address from device: %s", reported)
	}

	if !strings.EqualFold(derived.Hex(), reported) {
		return common.Address{}, errors.Errorf("address %s does not match public key (%s)", reported, derived.Hex())
	}

	return derived, nil
}

// GetBIP44Path gets BIP44 path (fixed format for EVM chains)
// Format: m/44'/60'/0'/0/{index}
func (s *service) GetBIP44Path(addressIndex int) string {
	return fmt.Sprintf("m/44'/60'/0'/0/%d", addressIndex)
}

// ParsePath parses a derivation path string (e.g., "m/44'/60'/0'/0/0")
func (s *service) ParsePath(path string) (ethapp.BIP44Path, error) {
	bip44Path, err := ethapp.ParseBIP44Path(path)
	if err != nil {
		return ethapp.BIP44Path{}, errors.Wrap(err, "failed to parse BIP44 path")
	}

	return bip44Path, nil
}
