package ethapp

import (
	"context"

	"github/chapool/go-ledger/internal/util"
)

// Signature is the decoded answer to a SignTransaction command
type Signature struct {
	V byte
	R [32]byte
	S [32]byte
}

// Bytes returns the signature in the [R || S || V] layout used by go-ethereum
func (s *Signature) Bytes() []byte {
	//nolint:mnd // 32 + 32 + 1
	sig := make([]byte, 65)
	copy(sig[0:32], s.R[:])
	copy(sig[32:64], s.S[:])
	sig[64] = s.V
	return sig
}

// TransactionResolution carries device-serialised metadata that lets the device display
// a transaction instead of blind signing it. Only ERC-20 descriptors are supported.
type TransactionResolution struct {
	// ERC20Tokens are pre-encoded ProvideERC20TokenInfo payloads
	ERC20Tokens [][]byte
}

// Sign signs rawTx with the key at path. rawTx is sent as an opaque blob and may span
// several frames. resolution may be nil.
func (a *App) Sign(ctx context.Context, path BIP44Path, rawTx []byte, resolution *TransactionResolution) (*Signature, error) {
	ctx = util.WithOperation(ctx, "sign_transaction")
	log := util.LogFromContext(ctx)

	if resolution != nil {
		for _, token := range resolution.ERC20Tokens {
			if err := a.provideERC20TokenInfo(ctx, token); err != nil {
				return nil, err
			}
		}
	}

	serializedPath := path.Serialize()
	data := make([]byte, 0, len(serializedPath)+len(rawTx))
	data = append(data, serializedPath...)
	data = append(data, rawTx...)

	answer, err := a.SendChunks(ctx, command(InsSignTransaction, byte(ChunkFirst), 0x00, data))
	if err != nil {
		log.Error().Err(err).Str("path", path.String()).Int("tx_len", len(rawTx)).Msg("Failed to sign transaction")
		return nil, err
	}

	return decodeSignature(answer.Data)
}

// decodeSignature parses v || r(32) || s(32)
func decodeSignature(data []byte) (*Signature, error) {
	switch {
	case len(data) == 0:
		return nil, ErrNoSignature
	//nolint:mnd // v, r and s need at least one byte each
	case len(data) < 3:
		return nil, ErrInvalidSignature
	}

	sig := &Signature{V: data[0]}

	//nolint:mnd // r spans bytes [1, 33)
	if len(data) < 33 {
		return nil, missing("signature r component")
	}
	copy(sig.R[:], data[1:33])

	//nolint:mnd // s spans bytes [33, 65)
	if len(data) < 65 {
		return nil, missing("signature s component")
	}
	copy(sig.S[:], data[33:65])

	return sig, nil
}
