package emulator_test

import (
	"bytes"
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-ledger/internal/ledger/apdu"
	"github/chapool/go-ledger/internal/ledger/ethapp"
)

var tokenContract = common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7")

func dynamicFeePayload(t *testing.T, to common.Address, data []byte) []byte {
	t.Helper()

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   big.NewInt(1),
		Nonce:     7,
		GasTipCap: big.NewInt(1_000_000_000),
		GasFeeCap: big.NewInt(30_000_000_000),
		Gas:       90_000,
		To:        &to,
		Value:     big.NewInt(0),
		Data:      data,
	})

	body, err := rlp.EncodeToBytes([]interface{}{
		tx.ChainId(), tx.Nonce(), tx.GasTipCap(), tx.GasFeeCap(), tx.Gas(), tx.To(), tx.Value(), tx.Data(), tx.AccessList(),
	})
	require.NoError(t, err)

	return append([]byte{types.DynamicFeeTxType}, body...)
}

func legacyPayload(t *testing.T) []byte {
	t.Helper()

	to := common.HexToAddress("0x000000000000000000000000000000000000dEaD")
	payload, err := rlp.EncodeToBytes([]interface{}{
		uint64(1), big.NewInt(20_000_000_000), uint64(21_000), to, big.NewInt(1), []byte{}, uint64(1), uint(0), uint(0),
	})
	require.NoError(t, err)

	return payload
}

func recoverSigner(t *testing.T, payload []byte, sig *ethapp.Signature, v byte) common.Address {
	t.Helper()

	raw := sig.Bytes()
	raw[64] = v
	pub, err := crypto.SigToPub(crypto.Keccak256(payload), raw)
	require.NoError(t, err)

	return crypto.PubkeyToAddress(*pub)
}

func TestSignDynamicFeeTransactionAcrossChunks(t *testing.T) {
	app := newFixture(t).app(t)

	// contract data long enough to need three frames
	payload := dynamicFeePayload(t, common.HexToAddress("0x000000000000000000000000000000000000dEaD"), bytes.Repeat([]byte{0xAB}, 600))
	require.Greater(t, len(payload)+21, 2*ethapp.ChunkSize)

	sig, err := app.Sign(context.Background(), ethapp.DefaultPath(0), payload, nil)
	require.NoError(t, err)

	assert.LessOrEqual(t, sig.V, byte(1))
	assert.Equal(t, common.HexToAddress(testAddress), recoverSigner(t, payload, sig, sig.V))
}

func TestSignLegacyTransaction(t *testing.T) {
	app := newFixture(t).app(t)
	payload := legacyPayload(t)

	sig, err := app.Sign(context.Background(), ethapp.DefaultPath(0), payload, nil)
	require.NoError(t, err)

	require.Contains(t, []byte{27, 28}, sig.V)
	assert.Equal(t, common.HexToAddress(testAddress), recoverSigner(t, payload, sig, sig.V-27))
}

func TestSignWaitsForCompleteTransaction(t *testing.T) {
	d := newFixture(t).device(t)
	ctx := context.Background()
	payload := legacyPayload(t)

	first := append(ethapp.DefaultPath(0).Serialize(), payload[:10]...)
	answer, err := d.Exchange(ctx, apdu.Command{CLA: ethapp.CLA, INS: 0x04, P1: 0x00, Data: first})
	require.NoError(t, err)
	assert.Equal(t, apdu.SWNoError, answer.StatusWord)
	assert.Empty(t, answer.Data)

	answer, err = d.Exchange(ctx, apdu.Command{CLA: ethapp.CLA, INS: 0x04, P1: 0x80, Data: payload[10:]})
	require.NoError(t, err)
	assert.Equal(t, apdu.SWNoError, answer.StatusWord)
	assert.Len(t, answer.Data, 65)

	// the session ends with the signature
	answer, err = d.Exchange(ctx, apdu.Command{CLA: ethapp.CLA, INS: 0x04, P1: 0x80, Data: []byte{0x00}})
	require.NoError(t, err)
	assert.Equal(t, apdu.SWConditionsNotSatisfied, answer.StatusWord)
}

func TestSignRejectsTrailingBytes(t *testing.T) {
	app := newFixture(t).app(t)

	payload := append(legacyPayload(t), 0x00)
	_, err := app.Sign(context.Background(), ethapp.DefaultPath(0), payload, nil)
	assert.True(t, ethapp.IsDeviceError(err, apdu.SWBadKeyHandle))
}

func TestSignRejectsUnknownTransactionType(t *testing.T) {
	app := newFixture(t).app(t)

	_, err := app.Sign(context.Background(), ethapp.DefaultPath(0), []byte{0x05, 0xC0}, nil)
	assert.True(t, ethapp.IsDeviceError(err, apdu.SWBadKeyHandle))
}

func TestBlindSigningDisabled(t *testing.T) {
	f := newFixture(t)
	f.cfg.Emulator.ArbitraryDataEnabled = false
	app := f.app(t)
	ctx := context.Background()

	payload := dynamicFeePayload(t, tokenContract, []byte{0xa9, 0x05, 0x9c, 0xbb})

	_, err := app.Sign(ctx, ethapp.DefaultPath(0), payload, nil)
	assert.True(t, ethapp.IsDeviceError(err, apdu.SWBadKeyHandle))

	token, err := ethapp.EncodeERC20TokenInfo(f.signToken(ethapp.ERC20TokenInfo{
		Ticker:   "USDT",
		Address:  tokenContract.Bytes(),
		Decimals: 6,
		ChainID:  1,
	}))
	require.NoError(t, err)

	sig, err := app.Sign(ctx, ethapp.DefaultPath(0), payload, &ethapp.TransactionResolution{ERC20Tokens: [][]byte{token}})
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testAddress), recoverSigner(t, payload, sig, sig.V))

	// provided tokens only cover the next transaction
	_, err = app.Sign(ctx, ethapp.DefaultPath(0), payload, nil)
	assert.True(t, ethapp.IsDeviceError(err, apdu.SWBadKeyHandle))
}
