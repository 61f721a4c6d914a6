package signer

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github/chapool/go-ledger/internal/wallet/address"
)

type service struct {
	device         Device
	addressService address.Service
}

// NewService creates a new SignerService
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewService(device Device, addressService address.Service) (Service, error) {
	if device == nil {
		return nil, errors.New("device is required")
	}
	if addressService == nil {
		return nil, errors.New("address service is required")
	}

	return &service{
		device:         device,
		addressService: addressService,
	}, nil
}

// SignEVMTransaction signs an EVM transaction (EIP-1559)
func (s *service) SignEVMTransaction(ctx context.Context, req *SignEVMRequest) (*SignEVMResponse, error) {
	if req == nil {
		return nil, errors.New("request is required")
	}
	if !common.IsHexAddress(req.FromAddress) {
		return nil, errors.Errorf("invalid from address %q", req.FromAddress)
	}

	path, err := s.addressService.ParsePath(req.DerivationPath)
	if err != nil {
		return nil, err
	}

	//nolint:varnamelen // tx is a common abbreviation for transaction
	tx, err := buildEIP1559Transaction(req)
	if err != nil {
		return nil, err
	}

	payload, err := signingPayload(tx)
	if err != nil {
		return nil, err
	}

	sig, err := s.device.Sign(ctx, path, payload, req.Resolution)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign transaction on device")
	}

	signedTx, err := attachSignature(tx, sig)
	if err != nil {
		return nil, err
	}

	// Verify from address matches the key the device signed with
	sender, err := types.Sender(types.NewLondonSigner(tx.ChainId()), signedTx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to recover sender")
	}
	if sender != common.HexToAddress(req.FromAddress) {
		return nil, errors.Errorf("from address does not match signing key (device signed as %s)", sender.Hex())
	}

	txBytes, err := signedTx.MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal transaction")
	}

	return &SignEVMResponse{
		RawTransaction: txBytes,
		TxHash:         signedTx.Hash().Hex(),
	}, nil
}
