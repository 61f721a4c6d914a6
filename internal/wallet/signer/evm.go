package signer

import (
	"bytes"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"github/chapool/go-ledger/internal/ledger/ethapp"
)

// buildEIP1559Transaction validates the request and builds the unsigned transaction
func buildEIP1559Transaction(req *SignEVMRequest) (*types.Transaction, error) {
	if !common.IsHexAddress(req.To) {
		return nil, errors.Errorf("invalid recipient address %q", req.To)
	}
	toAddress := common.HexToAddress(req.To)

	const base10 = 10
	value, ok := new(big.Int).SetString(req.Value, base10)
	if !ok {
		return nil, errors.New("invalid value format")
	}

	maxFeePerGas, ok := new(big.Int).SetString(req.MaxFeePerGas, base10)
	if !ok {
		return nil, errors.New("invalid maxFeePerGas format")
	}

	maxPriorityFeePerGas, ok := new(big.Int).SetString(req.MaxPriorityFeePerGas, base10)
	if !ok {
		return nil, errors.New("invalid maxPriorityFeePerGas format")
	}

	//nolint:varnamelen // tx is a common abbreviation for transaction
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   big.NewInt(req.ChainID),
		Nonce:     req.Nonce,
		GasTipCap: maxPriorityFeePerGas,
		GasFeeCap: maxFeePerGas,
		Gas:       req.GasLimit,
		To:        &toAddress,
		Value:     value,
		Data:      req.Data,
	})

	return tx, nil
}

// signingPayload returns the bytes the device hashes for an EIP-1559 transaction:
// 0x02 || rlp([chainId, nonce, tip, feeCap, gas, to, value, data, accessList])
//
//nolint:varnamelen // tx is a common abbreviation for transaction
func signingPayload(tx *types.Transaction) ([]byte, error) {
	body, err := rlp.EncodeToBytes([]interface{}{
		tx.ChainId(),
		tx.Nonce(),
		tx.GasTipCap(),
		tx.GasFeeCap(),
		tx.Gas(),
		tx.To(),
		tx.Value(),
		tx.Data(),
		tx.AccessList(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode transaction")
	}

	payload := append([]byte{types.DynamicFeeTxType}, body...)

	signer := types.NewLondonSigner(tx.ChainId())
	if !bytes.Equal(crypto.Keccak256(payload), signer.Hash(tx).Bytes()) {
		return nil, errors.New("signing payload does not match transaction hash")
	}

	return payload, nil
}

// attachSignature converts the device signature to go-ethereum's [R || S || V] form with V
// as the recovery id and attaches it to tx
//
//nolint:varnamelen // tx is a common abbreviation for transaction
func attachSignature(tx *types.Transaction, sig *ethapp.Signature) (*types.Transaction, error) {
	raw := sig.Bytes()

	//nolint:mnd // legacy-style v values are offset by 27
	if raw[64] >= 27 {
		raw[64] -= 27
	}
	if raw[64] > 1 {
		return nil, errors.Errorf("unexpected signature v value %d", sig.V)
	}

	signedTx, err := tx.WithSignature(types.NewLondonSigner(tx.ChainId()), raw)
	if err != nil {
		return nil, errors.Wrap(err, "failed to attach signature")
	}

	return signedTx, nil
}
