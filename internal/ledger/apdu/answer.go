package apdu

import (
	"encoding/binary"
)

// Answer is the response frame: payload bytes followed by a status word
type Answer struct {
	Data       []byte
	StatusWord StatusWord
}

// ParseAnswer splits raw response bytes into payload and trailing status word
func ParseAnswer(raw []byte) (*Answer, error) {
	if len(raw) < 2 {
		return nil, ErrAnswerTooShort
	}

	split := len(raw) - 2
	data := make([]byte, split)
	copy(data, raw[:split])

	return &Answer{
		Data:       data,
		StatusWord: StatusWord(binary.BigEndian.Uint16(raw[split:])),
	}, nil
}

// NewAnswer builds an answer from a payload and status word
func NewAnswer(sw StatusWord, data []byte) *Answer {
	return &Answer{Data: data, StatusWord: sw}
}

// Bytes renders the answer as it travels on the wire
func (a *Answer) Bytes() []byte {
	buf := make([]byte, len(a.Data)+2)
	copy(buf, a.Data)
	binary.BigEndian.PutUint16(buf[len(a.Data):], uint16(a.StatusWord))
	return buf
}

// IsSuccess reports whether the device signalled no error
func (a *Answer) IsSuccess() bool {
	return a.StatusWord == SWNoError
}
