package apdu

import (
	"github.com/pkg/errors"
)

// MaxDataLength is the largest payload that fits the single Lc byte
const MaxDataLength = 255

var (
	ErrPayloadTooLarge = errors.New("apdu: payload exceeds 255 bytes")
	ErrAnswerTooShort  = errors.New("apdu: answer shorter than status word")
)

// Command is a request frame sent to the device application
type Command struct {
	CLA  byte
	INS  byte
	P1   byte
	P2   byte
	Data []byte
}

// Serialize renders the frame as CLA INS P1 P2 Lc Data
func (c Command) Serialize() ([]byte, error) {
	if len(c.Data) > MaxDataLength {
		return nil, ErrPayloadTooLarge
	}

	//nolint:mnd // 5 header bytes including Lc
	buf := make([]byte, 0, 5+len(c.Data))
	buf = append(buf, c.CLA, c.INS, c.P1, c.P2, byte(len(c.Data)))
	buf = append(buf, c.Data...)

	return buf, nil
}

// ParseCommand is the inverse of Serialize and is used by device-side code
func ParseCommand(raw []byte) (Command, error) {
	//nolint:mnd // header length
	if len(raw) < 5 {
		return Command{}, errors.New("apdu: command shorter than header")
	}

	length := int(raw[4])
	if len(raw)-5 != length {
		return Command{}, errors.Errorf("apdu: declared length %d does not match %d payload bytes", length, len(raw)-5)
	}

	data := make([]byte, length)
	copy(data, raw[5:])

	return Command{
		CLA:  raw[0],
		INS:  raw[1],
		P1:   raw[2],
		P2:   raw[3],
		Data: data,
	}, nil
}
