package emulator

import (
	"bytes"
	"encoding/hex"
	"io"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"github/chapool/go-ledger/internal/ledger/apdu"
	"github/chapool/go-ledger/internal/ledger/ethapp"
	"github/chapool/go-ledger/internal/wallet/address"
)

// legacyV is added to the recovery id of legacy transaction signatures
const legacyV = 27

var errIncomplete = errors.New("transaction incomplete")

// signSession accumulates a transaction sent over several frames
type signSession struct {
	path []uint32
	tx   []byte
}

func (d *Device) signTransaction(cmd apdu.Command) *apdu.Answer {
	switch ethapp.ChunkPayloadType(cmd.P1) {
	case ethapp.ChunkFirst:
		path, rest, ok := parsePath(cmd.Data)
		if !ok {
			d.session = nil
			return apdu.NewAnswer(apdu.SWBadKeyHandle, nil)
		}
		d.session = &signSession{path: path, tx: append([]byte(nil), rest...)}
	case ethapp.ChunkSubsequent:
		if d.session == nil {
			return apdu.NewAnswer(apdu.SWConditionsNotSatisfied, nil)
		}
		d.session.tx = append(d.session.tx, cmd.Data...)
	default:
		return apdu.NewAnswer(apdu.SWInvalidP1P2, nil)
	}

	fields, err := decodeTransaction(d.session.tx)
	if errors.Is(err, errIncomplete) {
		return apdu.NewAnswer(apdu.SWNoError, nil)
	}

	session := d.session
	d.session = nil
	defer clear(d.tokens)

	if err != nil {
		d.logger.Debug().Err(err).Msg("Rejected transaction")
		return apdu.NewAnswer(apdu.SWBadKeyHandle, nil)
	}

	if len(fields.data) > 0 {
		token, known := d.tokens[hex.EncodeToString(fields.to)]
		switch {
		case known:
			d.logger.Info().Str("ticker", token.Ticker).Msg("Displaying token transfer")
		case !d.arbitraryDataEnabled():
			d.logger.Info().Msg("Contract data rejected, blind signing disabled")
			return apdu.NewAnswer(apdu.SWBadKeyHandle, nil)
		}
	}

	return d.sign(session, fields.typed)
}

func (d *Device) sign(session *signSession, typed bool) *apdu.Answer {
	s := d.seed.GetSeed()
	if s == nil {
		return apdu.NewAnswer(apdu.SWConditionsNotSatisfied, nil)
	}

	privateKey, _, err := address.DerivePrivateKey(s, session.path)
	if err != nil {
		d.logger.Warn().Err(err).Msg("Failed to derive key")
		return apdu.NewAnswer(apdu.SWBadKeyHandle, nil)
	}

	sig, err := crypto.Sign(crypto.Keccak256(session.tx), privateKey)
	if err != nil {
		d.logger.Error().Err(err).Msg("Failed to sign transaction")
		return apdu.NewAnswer(apdu.SWSignVerifyError, nil)
	}

	v := sig[64]
	if !typed {
		v += legacyV
	}

	//nolint:mnd // v || r || s
	data := make([]byte, 0, 65)
	data = append(data, v)
	data = append(data, sig[:64]...)

	return apdu.NewAnswer(apdu.SWNoError, data)
}

func (d *Device) arbitraryDataEnabled() bool {
	return d.configuration[0]&ethapp.FlagArbitraryDataEnabled != 0
}

// txFields are the parts of a transaction the device inspects before signing
type txFields struct {
	typed bool
	to    []byte
	data  []byte
}

// decodeTransaction walks the unsigned transaction RLP. It returns errIncomplete while
// more frames are expected.
func decodeTransaction(tx []byte) (*txFields, error) {
	if len(tx) == 0 {
		return nil, errIncomplete
	}

	fields := &txFields{}
	body := tx
	// field positions of `to` and `data` in the RLP list
	toIndex, dataIndex := 3, 5

	// typed transactions (EIP-2718) start with a type byte below the RLP list range
	if tx[0] <= 0x7f {
		fields.typed = true
		body = tx[1:]

		switch tx[0] {
		case 0x01:
			toIndex, dataIndex = 4, 6
		case 0x02:
			toIndex, dataIndex = 5, 7
		default:
			return nil, errors.Errorf("unsupported transaction type %d", tx[0])
		}
	}

	kind, content, rest, err := rlp.Split(body)
	switch {
	case errors.Is(err, rlp.ErrValueTooLarge), errors.Is(err, io.ErrUnexpectedEOF):
		return nil, errIncomplete
	case err != nil:
		return nil, errors.Wrap(err, "invalid transaction encoding")
	case kind != rlp.List:
		return nil, errors.New("transaction is not an RLP list")
	case len(rest) != 0:
		return nil, errors.Errorf("%d trailing bytes after transaction", len(rest))
	}

	for i := 0; len(content) > 0; i++ {
		var value []byte
		kind, value, content, err = rlp.Split(content)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid transaction field %d", i)
		}

		switch i {
		case toIndex:
			if kind != rlp.String {
				return nil, errors.New("recipient is not a string")
			}
			fields.to = bytes.Clone(value)
		case dataIndex:
			if kind != rlp.String {
				return nil, errors.New("data is not a string")
			}
			fields.data = bytes.Clone(value)
		}
	}

	return fields, nil
}
