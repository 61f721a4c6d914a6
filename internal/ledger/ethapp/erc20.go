package ethapp

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
	"github/chapool/go-ledger/internal/util"
)

// ERC20TokenInfo is a trusted description of an ERC-20 contract.
// Signature is made over SignedMessage() by the key the device trusts.
type ERC20TokenInfo struct {
	Ticker    string
	Address   []byte
	Decimals  uint32
	ChainID   uint32
	Signature []byte
}

// SignedMessage returns ticker || address || uint32be(decimals) || uint32be(chainId)
func (t ERC20TokenInfo) SignedMessage() []byte {
	//nolint:mnd // two uint32 fields
	msg := make([]byte, 0, len(t.Ticker)+len(t.Address)+8)
	msg = append(msg, t.Ticker...)
	msg = append(msg, t.Address...)
	msg = binary.BigEndian.AppendUint32(msg, t.Decimals)
	msg = binary.BigEndian.AppendUint32(msg, t.ChainID)
	return msg
}

// EncodeERC20TokenInfo builds the ProvideERC20TokenInfo payload:
// len(ticker) || ticker || address || uint32be(decimals) || uint32be(chainId) || signature
func EncodeERC20TokenInfo(info ERC20TokenInfo) ([]byte, error) {
	if len(info.Ticker) > math.MaxUint8 {
		return nil, ErrTickerOutOfBounds
	}

	msg := info.SignedMessage()
	payload := make([]byte, 0, 1+len(msg)+len(info.Signature))
	payload = append(payload, byte(len(info.Ticker)))
	payload = append(payload, msg...)
	payload = append(payload, info.Signature...)

	return payload, nil
}

// DecodeERC20TokenInfo parses a ProvideERC20TokenInfo payload whose contract address is addressLen bytes long
func DecodeERC20TokenInfo(payload []byte, addressLen int) (ERC20TokenInfo, error) {
	if len(payload) < 1 {
		return ERC20TokenInfo{}, missing("ticker length")
	}

	tickerEnd := 1 + int(payload[0])
	addressEnd := tickerEnd + addressLen
	//nolint:mnd // decimals and chain id
	fieldsEnd := addressEnd + 8
	if len(payload) < fieldsEnd {
		return ERC20TokenInfo{}, errors.Errorf("token info payload of %d bytes is truncated", len(payload))
	}

	return ERC20TokenInfo{
		Ticker:    string(payload[1:tickerEnd]),
		Address:   append([]byte(nil), payload[tickerEnd:addressEnd]...),
		Decimals:  binary.BigEndian.Uint32(payload[addressEnd:]),
		ChainID:   binary.BigEndian.Uint32(payload[addressEnd+4:]),
		Signature: append([]byte(nil), payload[fieldsEnd:]...),
	}, nil
}

// ProvideERC20TokenInfo registers a token description with the device.
// It must be sent right before signing a transaction that involves the token.
// The payload is not chunked; it has to fit one frame.
func (a *App) ProvideERC20TokenInfo(ctx context.Context, info ERC20TokenInfo) error {
	payload, err := EncodeERC20TokenInfo(info)
	if err != nil {
		return err
	}

	return a.ProvideERC20TokenInfoPayload(ctx, payload)
}

// ProvideERC20TokenInfoPayload registers a pre-encoded token description
func (a *App) ProvideERC20TokenInfoPayload(ctx context.Context, payload []byte) error {
	return a.provideERC20TokenInfo(util.WithOperation(ctx, "provide_erc20_token_info"), payload)
}

// provideERC20TokenInfo sends payload under the caller's logging context
func (a *App) provideERC20TokenInfo(ctx context.Context, payload []byte) error {
	if _, err := a.exchange(ctx, command(InsProvideERC20TokenInfo, 0x00, 0x00, payload)); err != nil {
		util.LogFromContext(ctx).Error().Err(err).Int("payload_len", len(payload)).Msg("Failed to provide ERC-20 token info")
		return err
	}

	return nil
}
