package ethapp_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-ledger/internal/ledger/apdu"
	"github/chapool/go-ledger/internal/ledger/ethapp"
)

func signatureResponse() []byte {
	resp := []byte{0x1B}
	resp = append(resp, bytes.Repeat([]byte{0x11}, 32)...)
	resp = append(resp, bytes.Repeat([]byte{0x22}, 32)...)
	return resp
}

func TestSignDecodesSignature(t *testing.T) {
	resp := signatureResponse()
	fake := newScripted(t, ok(resp...))

	sig, err := ethapp.New(fake).Sign(t.Context(), ethapp.DefaultPath(0), []byte{0xE3, 0x01}, nil)
	require.NoError(t, err)

	assert.Equal(t, resp[0], sig.V)
	assert.Equal(t, resp[1:33], sig.R[:])
	assert.Equal(t, resp[33:65], sig.S[:])

	raw := sig.Bytes()
	require.Len(t, raw, 65)
	assert.Equal(t, resp[1:65], raw[:64])
	assert.Equal(t, resp[0], raw[64])
}

func TestSignChunksPathAndTransaction(t *testing.T) {
	rawTx := payload(600)
	path := ethapp.DefaultPath(1)
	// 21 + 600 bytes span three frames
	fake := newScripted(t, ok(), ok(), ok(signatureResponse()...))

	_, err := ethapp.New(fake).Sign(t.Context(), path, rawTx, nil)
	require.NoError(t, err)
	require.Len(t, fake.commands, 3)

	first := fake.commands[0]
	assert.Equal(t, byte(ethapp.InsSignTransaction), first.INS)
	assert.Equal(t, byte(ethapp.ChunkFirst), first.P1)
	assert.Equal(t, path.Serialize(), first.Data[:21])

	var joined []byte
	for _, cmd := range fake.commands {
		joined = append(joined, cmd.Data...)
	}
	assert.Equal(t, append(path.Serialize(), rawTx...), joined)
	assert.Equal(t, byte(ethapp.ChunkSubsequent), fake.commands[2].P1)
}

func TestSignMalformedSignature(t *testing.T) {
	tests := []struct {
		name     string
		response []byte
		err      error
		field    string
	}{
		{name: "empty", response: nil, err: ethapp.ErrNoSignature},
		{name: "two bytes", response: []byte{1, 2}, err: ethapp.ErrInvalidSignature},
		{name: "short r", response: payload(10), field: "signature r component"},
		{name: "short s", response: payload(40), field: "signature s component"},
		{name: "one byte short", response: payload(64), field: "signature s component"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newScripted(t, ok(tt.response...))

			_, err := ethapp.New(fake).Sign(t.Context(), ethapp.DefaultPath(0), []byte{0xC0}, nil)
			require.Error(t, err)

			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}

			var missing *ethapp.MissingResponseDataError
			require.ErrorAs(t, err, &missing)
			assert.Equal(t, tt.field, missing.Field)
		})
	}
}

func TestSignUserRejected(t *testing.T) {
	fake := newScripted(t, ok(), status(apdu.SWConditionsNotSatisfied))

	_, err := ethapp.New(fake).Sign(t.Context(), ethapp.DefaultPath(0), payload(300), nil)
	assert.True(t, ethapp.IsDeviceError(err, apdu.SWConditionsNotSatisfied))
}

func TestSignProvidesResolutionFirst(t *testing.T) {
	tokenA := []byte{3, 'A', 'B', 'C', 0xFF}
	tokenB := []byte{3, 'D', 'E', 'F', 0xEE}
	fake := newScripted(t, ok(), ok(), ok(signatureResponse()...))

	_, err := ethapp.New(fake).Sign(t.Context(), ethapp.DefaultPath(0), []byte{0xC0}, &ethapp.TransactionResolution{
		ERC20Tokens: [][]byte{tokenA, tokenB},
	})
	require.NoError(t, err)
	require.Len(t, fake.commands, 3)

	assert.Equal(t, byte(ethapp.InsProvideERC20TokenInfo), fake.commands[0].INS)
	assert.Equal(t, tokenA, fake.commands[0].Data)
	assert.Equal(t, byte(ethapp.InsProvideERC20TokenInfo), fake.commands[1].INS)
	assert.Equal(t, tokenB, fake.commands[1].Data)
	assert.Equal(t, byte(ethapp.InsSignTransaction), fake.commands[2].INS)
}

func TestSignResolutionFailureSkipsSigning(t *testing.T) {
	fake := newScripted(t, status(apdu.SWBadKeyHandle))

	_, err := ethapp.New(fake).Sign(t.Context(), ethapp.DefaultPath(0), []byte{0xC0}, &ethapp.TransactionResolution{
		ERC20Tokens: [][]byte{{1, 'X'}},
	})
	assert.True(t, ethapp.IsDeviceError(err, apdu.SWBadKeyHandle))
	assert.Len(t, fake.commands, 1)
}

func TestSignResolutionLogsUnderSignOperation(t *testing.T) {
	var buf bytes.Buffer
	ctx := zerolog.New(&buf).Level(zerolog.DebugLevel).WithContext(context.Background())
	fake := newScripted(t, status(apdu.SWBadKeyHandle))

	_, err := ethapp.New(fake).Sign(ctx, ethapp.DefaultPath(0), []byte{0xC0}, &ethapp.TransactionResolution{
		ERC20Tokens: [][]byte{{1, 'X'}},
	})
	require.Error(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	for _, line := range lines {
		assert.Equal(t, 1, strings.Count(line, `"op":`), line)
		assert.Equal(t, 1, strings.Count(line, `"op_id":`), line)
		assert.Contains(t, line, `"op":"sign_transaction"`)
	}
	assert.Contains(t, buf.String(), "Failed to provide ERC-20 token info")
}
