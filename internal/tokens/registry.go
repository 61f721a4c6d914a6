// Package tokens loads signed ERC-20 descriptors the device accepts before signing
// token transfers.
package tokens

import (
	"encoding/hex"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github/chapool/go-ledger/internal/ledger/ethapp"
)

// ErrTokenNotFound is returned when no descriptor matches a lookup
var ErrTokenNotFound = errors.New("token not found")

// Entry is one [[token]] table of a registry file
type Entry struct {
	Ticker    string `toml:"ticker"`
	Address   string `toml:"address"`
	Decimals  uint32 `toml:"decimals"`
	ChainID   uint32 `toml:"chain_id"`
	Signature string `toml:"signature"`
}

type file struct {
	Tokens []Entry `toml:"token"`
}

type key struct {
	chainID uint32
	value   string
}

// Registry indexes token descriptors by ticker and by contract address, per chain
type Registry struct {
	tokens    []ethapp.ERC20TokenInfo
	byTicker  map[key]int
	byAddress map[key]int
}

// Load reads a registry file
func Load(path string) (*Registry, error) {
	var f file
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, errors.Wrapf(err, "failed to decode token registry %s", path)
	}

	return New(f.Tokens)
}

// Parse reads a registry from TOML text
func Parse(data string) (*Registry, error) {
	var f file
	if _, err := toml.Decode(data, &f); err != nil {
		return nil, errors.Wrap(err, "failed to decode token registry")
	}

	return New(f.Tokens)
}

// New validates entries and builds a registry from them
func New(entries []Entry) (*Registry, error) {
	r := &Registry{
		tokens:    make([]ethapp.ERC20TokenInfo, 0, len(entries)),
		byTicker:  make(map[key]int, len(entries)),
		byAddress: make(map[key]int, len(entries)),
	}

	for i, e := range entries {
		info, err := e.toInfo()
		if err != nil {
			return nil, errors.Wrapf(err, "token #%d (%s)", i+1, e.Ticker)
		}

		tickerKey := key{chainID: info.ChainID, value: strings.ToUpper(info.Ticker)}
		addressKey := key{chainID: info.ChainID, value: hex.EncodeToString(info.Address)}

		if _, ok := r.byAddress[addressKey]; ok {
			return nil, errors.Errorf("token #%d (%s): duplicate address %s on chain %d", i+1, e.Ticker, e.Address, info.ChainID)
		}
		if _, ok := r.byTicker[tickerKey]; ok {
			return nil, errors.Errorf("token #%d (%s): duplicate ticker on chain %d", i+1, e.Ticker, info.ChainID)
		}

		r.tokens = append(r.tokens, info)
		r.byAddress[addressKey] = len(r.tokens) - 1
		r.byTicker[tickerKey] = len(r.tokens) - 1
	}

	return r, nil
}

func (e Entry) toInfo() (ethapp.ERC20TokenInfo, error) {
	if e.Ticker == "" {
		return ethapp.ERC20TokenInfo{}, errors.New("ticker is required")
	}

	if !common.IsHexAddress(e.Address) {
		return ethapp.ERC20TokenInfo{}, errors.Errorf("invalid address %q", e.Address)
	}

	signature, err := hex.DecodeString(strings.TrimPrefix(e.Signature, "0x"))
	if err != nil {
		return ethapp.ERC20TokenInfo{}, errors.Wrap(err, "invalid signature hex")
	}
	if len(signature) == 0 {
		return ethapp.ERC20TokenInfo{}, errors.New("signature is required")
	}

	info := ethapp.ERC20TokenInfo{
		Ticker:    e.Ticker,
		Address:   common.HexToAddress(e.Address).Bytes(),
		Decimals:  e.Decimals,
		ChainID:   e.ChainID,
		Signature: signature,
	}

	// reject descriptors that could not be sent to the device
	if _, err := ethapp.EncodeERC20TokenInfo(info); err != nil {
		return ethapp.ERC20TokenInfo{}, err
	}

	return info, nil
}

// Len returns the number of descriptors
func (r *Registry) Len() int {
	return len(r.tokens)
}

// ByTicker finds a token by its ticker (case-insensitive) on a chain
func (r *Registry) ByTicker(chainID uint32, ticker string) (ethapp.ERC20TokenInfo, error) {
	i, ok := r.byTicker[key{chainID: chainID, value: strings.ToUpper(ticker)}]
	if !ok {
		return ethapp.ERC20TokenInfo{}, errors.Wrapf(ErrTokenNotFound, "ticker %s on chain %d", ticker, chainID)
	}

	return r.tokens[i], nil
}

// ByAddress finds a token by its contract address on a chain
func (r *Registry) ByAddress(chainID uint32, address common.Address) (ethapp.ERC20TokenInfo, error) {
	i, ok := r.byAddress[key{chainID: chainID, value: hex.EncodeToString(address.Bytes())}]
	if !ok {
		return ethapp.ERC20TokenInfo{}, errors.Wrapf(ErrTokenNotFound, "address %s on chain %d", address.Hex(), chainID)
	}

	return r.tokens[i], nil
}

// Resolution returns the transaction resolution for a transaction sent to address.
// Transactions to unknown contracts get an empty resolution.
func (r *Registry) Resolution(chainID uint32, address common.Address) (*ethapp.TransactionResolution, error) {
	info, err := r.ByAddress(chainID, address)
	if errors.Is(err, ErrTokenNotFound) {
		return &ethapp.TransactionResolution{}, nil
	}
	if err != nil {
		return nil, err
	}

	payload, err := ethapp.EncodeERC20TokenInfo(info)
	if err != nil {
		return nil, err
	}

	return &ethapp.TransactionResolution{ERC20Tokens: [][]byte{payload}}, nil
}
