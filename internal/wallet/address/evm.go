package address

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip32"
)

// DeriveKey derives the extended key at indices from a BIP39 seed
func DeriveKey(seed []byte, indices []uint32) (*bip32.Key, error) {
	// Create master key from seed
	masterKey, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create master key")
	}

	// Derive key step by step
	key := masterKey
	for _, index := range indices {
		key, err = key.NewChildKey(index)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to derive child key at index %d", index)
		}
	}

	return key, nil
}

// DerivePrivateKey derives the ECDSA private key at indices
// WARNING: Caller should drop the key as soon as possible
func DerivePrivateKey(seed []byte, indices []uint32) (*ecdsa.PrivateKey, []byte, error) {
	key, err := DeriveKey(seed, indices)
	if err != nil {
		return nil, nil, err
	}

	privateKey, err := crypto.ToECDSA(key.Key)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to convert to ECDSA private key")
	}

	return privateKey, key.ChainCode, nil
}

// DeriveAddress derives the EIP-55 address at indices from a seed
func DeriveAddress(seed []byte, indices []uint32) (string, error) {
	privateKey, _, err := DerivePrivateKey(seed, indices)
	if err != nil {
		return "", err
	}

	publicKey, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return "", errors.New("failed to cast public key to ECDSA")
	}

	return crypto.PubkeyToAddress(*publicKey).Hex(), nil
}
