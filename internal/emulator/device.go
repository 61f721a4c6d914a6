// Package emulator implements the Ethereum device application in software.
// It answers the same frames a hardware device does and can be used in-process
// as a transport or served over the TCP and HTTP bridge protocols.
package emulator

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github/chapool/go-ledger/internal/config"
	"github/chapool/go-ledger/internal/ledger/apdu"
	"github/chapool/go-ledger/internal/ledger/ethapp"
	"github/chapool/go-ledger/internal/metrics"
	"github/chapool/go-ledger/internal/wallet/address"
	"github/chapool/go-ledger/internal/wallet/seed"
)

// maxPathComponents is the deepest derivation path the device accepts
const maxPathComponents = 10

// Device is a software Ethereum device application. It is safe for concurrent use;
// frames are processed one at a time.
type Device struct {
	mu sync.Mutex

	seed          seed.Manager
	configuration []byte
	trustedKey    *secp256k1.PublicKey
	metrics       *metrics.Service
	logger        zerolog.Logger

	session *signSession
	// tokens provided since the last signature, keyed by lowercase contract address
	tokens map[string]ethapp.ERC20TokenInfo
}

// NewDevice creates a device answering with the seed held by seedManager.
// An empty TrustedTokenKey disables ERC-20 descriptor verification.
func NewDevice(cfg config.Emulator, seedManager seed.Manager, m *metrics.Service) (*Device, error) {
	if seedManager == nil {
		return nil, errors.New("seed manager is required")
	}

	configuration, err := ethapp.AppConfiguration{
		ArbitraryDataEnabled:       cfg.ArbitraryDataEnabled,
		ERC20ProvisioningNecessary: cfg.ERC20ProvisioningNecessary,
		StarkEnabled:               cfg.StarkEnabled,
		StarkV2Supported:           cfg.StarkV2Supported,
		Version:                    cfg.Version,
	}.Encode()
	if err != nil {
		return nil, err
	}

	d := &Device{
		seed:          seedManager,
		configuration: configuration,
		metrics:       m,
		logger:        log.With().Str("component", "emulator").Logger(),
		tokens:        make(map[string]ethapp.ERC20TokenInfo),
	}

	if cfg.TrustedTokenKey != "" {
		raw, err := hex.DecodeString(strings.TrimPrefix(cfg.TrustedTokenKey, "0x"))
		if err != nil {
			return nil, errors.Wrap(err, "failed to decode trusted token key")
		}

		d.trustedKey, err = secp256k1.ParsePubKey(raw)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse trusted token key")
		}
	} else {
		d.logger.Warn().Msg("ERC-20 descriptor verification disabled")
	}

	return d, nil
}

// Exchange processes one frame in-process, which lets the device serve as a transport
func (d *Device) Exchange(ctx context.Context, cmd apdu.Command) (*apdu.Answer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// the wire limit applies in-process too
	if _, err := cmd.Serialize(); err != nil {
		return nil, err
	}

	return d.process(cmd), nil
}

// Close is a no-op; the device holds no connection
func (d *Device) Close() error {
	return nil
}

// Handle processes one serialized frame and returns the answer to send back
func (d *Device) Handle(raw []byte) *apdu.Answer {
	cmd, err := apdu.ParseCommand(raw)
	if err != nil {
		d.logger.Debug().Err(err).Msg("Malformed command")
		return apdu.NewAnswer(apdu.SWWrongLength, nil)
	}

	return d.process(cmd)
}

func (d *Device) process(cmd apdu.Command) *apdu.Answer {
	d.mu.Lock()
	defer d.mu.Unlock()

	answer := d.dispatch(cmd)

	ins := fmt.Sprintf("0x%02X", cmd.INS)
	if d.metrics != nil {
		d.metrics.RecordDeviceCommand(ins, answer.StatusWord.String())
	}

	d.logger.Debug().
		Str("ins", ins).
		Uint8("p1", cmd.P1).
		Uint8("p2", cmd.P2).
		Int("data_len", len(cmd.Data)).
		Stringer("sw", answer.StatusWord).
		Msg("Handled command")

	return answer
}

func (d *Device) dispatch(cmd apdu.Command) *apdu.Answer {
	if cmd.CLA != ethapp.CLA {
		return apdu.NewAnswer(apdu.SWClaNotSupported, nil)
	}

	switch ethapp.InstructionCode(cmd.INS) {
	case ethapp.InsGetAddress:
		return d.getAddress(cmd)
	case ethapp.InsSignTransaction:
		return d.signTransaction(cmd)
	case ethapp.InsGetAppConfiguration:
		return apdu.NewAnswer(apdu.SWNoError, append([]byte(nil), d.configuration...))
	case ethapp.InsProvideERC20TokenInfo:
		return d.provideERC20TokenInfo(cmd)
	default:
		return apdu.NewAnswer(apdu.SWInsNotSupported, nil)
	}
}

func (d *Device) getAddress(cmd apdu.Command) *apdu.Answer {
	if cmd.P1 > 1 || cmd.P2 > 1 {
		return apdu.NewAnswer(apdu.SWInvalidP1P2, nil)
	}

	path, rest, ok := parsePath(cmd.Data)
	if !ok || len(rest) != 0 {
		return apdu.NewAnswer(apdu.SWBadKeyHandle, nil)
	}

	s := d.seed.GetSeed()
	if s == nil {
		return apdu.NewAnswer(apdu.SWConditionsNotSatisfied, nil)
	}

	privateKey, chainCode, err := address.DerivePrivateKey(s, path)
	if err != nil {
		d.logger.Warn().Err(err).Msg("Failed to derive key")
		return apdu.NewAnswer(apdu.SWBadKeyHandle, nil)
	}

	publicKey := crypto.FromECDSAPub(&privateKey.PublicKey)
	addr := []byte(crypto.PubkeyToAddress(privateKey.PublicKey).Hex()[2:])

	if cmd.P1 == 1 {
		d.logger.Info().Str("address", string(addr)).Msg("Displaying address")
	}

	data := make([]byte, 0, 2+len(publicKey)+len(addr)+len(chainCode))
	data = append(data, byte(len(publicKey)))
	data = append(data, publicKey...)
	data = append(data, byte(len(addr)))
	data = append(data, addr...)
	if cmd.P2 == 1 {
		data = append(data, chainCode...)
	}

	return apdu.NewAnswer(apdu.SWNoError, data)
}

// parsePath reads count || count*uint32be and returns the indices and the remaining bytes
func parsePath(data []byte) ([]uint32, []byte, bool) {
	if len(data) < 1 {
		return nil, nil, false
	}

	count := int(data[0])
	if count == 0 || count > maxPathComponents || len(data) < 1+4*count {
		return nil, nil, false
	}

	path := make([]uint32, count)
	for i := range path {
		path[i] = binary.BigEndian.Uint32(data[1+4*i:])
	}

	return path, data[1+4*count:], true
}
