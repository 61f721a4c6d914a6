package ethapp_test

import (
	"encoding/binary"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-ledger/internal/ledger/ethapp"
)

func TestBIP44PathSerialize(t *testing.T) {
	serialized := ethapp.DefaultPath(0).Serialize()
	assert.Equal(t, "058000002c8000003c800000000000000000000000", hex.EncodeToString(serialized))

	paths := []ethapp.BIP44Path{
		{},
		{Purpose: 44, Coin: 60, Account: 0, Change: 0, Index: 0},
		{Purpose: 0x8000002c, Coin: 0x80000001, Account: 0x1234, Change: 0, Index: 0x5678},
		{Purpose: 0xFFFFFFFF, Coin: 1, Account: 2, Change: 3, Index: 4},
	}

	for _, path := range paths {
		serialized := path.Serialize()
		require.Len(t, serialized, 21)
		assert.Equal(t, byte(5), serialized[0])
		assert.Equal(t, path.Purpose, binary.BigEndian.Uint32(serialized[1:]))
		assert.Equal(t, path.Coin, binary.BigEndian.Uint32(serialized[5:]))
		assert.Equal(t, path.Account, binary.BigEndian.Uint32(serialized[9:]))
		assert.Equal(t, path.Change, binary.BigEndian.Uint32(serialized[13:]))
		assert.Equal(t, path.Index, binary.BigEndian.Uint32(serialized[17:]))
	}
}

func TestParseBIP44Path(t *testing.T) {
	path, err := ethapp.ParseBIP44Path("m/44'/60'/0'/0/7")
	require.NoError(t, err)
	assert.Equal(t, ethapp.DefaultPath(7), path)
	assert.Equal(t, "m/44'/60'/0'/0/7", path.String())

	path, err = ethapp.ParseBIP44Path("m/44h/1h/2/3/4")
	require.NoError(t, err)
	assert.Equal(t, ethapp.BIP44Path{Purpose: 0x8000002c, Coin: 0x80000001, Account: 2, Change: 3, Index: 4}, path)
}

func TestParseBIP44PathInvalid(t *testing.T) {
	for _, path := range []string{
		"",
		"44'/60'/0'/0/0",
		"m/44'/60'/0'/0",
		"m/44'/60'/0'/0/0/0",
		"m/44'/sixty'/0'/0/0",
		"m/44'/60'/0'/0/-1",
		"m/44'/2147483648'/0'/0/0",
		"m44'/60'/0'/0/0",
		"m//44'/60'/0'/0",
		"m/44'/60'//0'/0",
		"m/44'/60'/0'/0/",
		"m/44'/'/0'/0/0",
	} {
		_, err := ethapp.ParseBIP44Path(path)
		assert.Error(t, err, path)
	}
}
