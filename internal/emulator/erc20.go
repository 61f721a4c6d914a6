package emulator

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github/chapool/go-ledger/internal/ledger/apdu"
	"github/chapool/go-ledger/internal/ledger/ethapp"
)

// addressLength is the size of an Ethereum contract address
const addressLength = 20

func (d *Device) provideERC20TokenInfo(cmd apdu.Command) *apdu.Answer {
	if cmd.P1 != 0 || cmd.P2 != 0 {
		return apdu.NewAnswer(apdu.SWInvalidP1P2, nil)
	}

	info, err := ethapp.DecodeERC20TokenInfo(cmd.Data, addressLength)
	if err != nil {
		d.logger.Debug().Err(err).Msg("Malformed token descriptor")
		return apdu.NewAnswer(apdu.SWBadKeyHandle, nil)
	}

	if d.trustedKey != nil {
		sig, err := ecdsa.ParseDERSignature(info.Signature)
		if err != nil {
			d.logger.Debug().Err(err).Str("ticker", info.Ticker).Msg("Malformed token signature")
			return apdu.NewAnswer(apdu.SWBadKeyHandle, nil)
		}

		hash := sha256.Sum256(info.SignedMessage())
		if !sig.Verify(hash[:], d.trustedKey) {
			d.logger.Debug().Str("ticker", info.Ticker).Msg("Token signature does not verify")
			return apdu.NewAnswer(apdu.SWBadKeyHandle, nil)
		}
	}

	d.tokens[hex.EncodeToString(info.Address)] = info

	return apdu.NewAnswer(apdu.SWNoError, nil)
}
