package ethapp

import (
	"bytes"
	"context"

	"github/chapool/go-ledger/internal/util"
)

// Address is the decoded answer to a GetAddress command
type Address struct {
	// PublicKey holds the uncompressed secp256k1 public key
	PublicKey []byte
	// Address holds the address as ASCII hex without the 0x prefix
	Address []byte
	// ChainCode is nil unless it was requested
	ChainCode []byte
}

// Hex returns the address with its 0x prefix
func (a *Address) Hex() string {
	return "0x" + string(a.Address)
}

// Address retrieves the public key and address for path.
// enableDisplay asks the device to show the address for confirmation,
// enableChainCode asks it to return the BIP-32 chain code as well. nil means false.
func (a *App) Address(ctx context.Context, path BIP44Path, enableDisplay *bool, enableChainCode *bool) (*Address, error) {
	ctx = util.WithOperation(ctx, "get_address")
	log := util.LogFromContext(ctx)

	withChainCode := util.FalseIfNil(enableChainCode)
	cmd := command(
		InsGetAddress,
		util.BoolToByte(util.FalseIfNil(enableDisplay)),
		util.BoolToByte(withChainCode),
		path.Serialize(),
	)

	answer, err := a.exchange(ctx, cmd)
	if err != nil {
		log.Error().Err(err).Str("path", path.String()).Msg("Failed to get address")
		return nil, err
	}

	return decodeAddress(answer.Data, withChainCode)
}

// decodeAddress parses pubkey_len || pubkey || address_len || address [|| chain_code].
// The chain code is every byte following the address.
func decodeAddress(data []byte, withChainCode bool) (*Address, error) {
	if len(data) < 1 {
		return nil, missing("pubkey length")
	}

	pubkeyEnd := 1 + int(data[0])
	if len(data) < pubkeyEnd {
		return nil, missing("public key")
	}

	if len(data) < pubkeyEnd+1 {
		return nil, missing("address length")
	}

	addressStart := pubkeyEnd + 1
	addressEnd := addressStart + int(data[pubkeyEnd])
	if len(data) < addressEnd {
		return nil, missing("address")
	}

	result := &Address{
		PublicKey: bytes.Clone(data[1:pubkeyEnd]),
		Address:   bytes.Clone(data[addressStart:addressEnd]),
	}

	if withChainCode {
		if len(data) == addressEnd {
			return nil, missing("chain code")
		}
		result.ChainCode = bytes.Clone(data[addressEnd:])
	}

	return result, nil
}
