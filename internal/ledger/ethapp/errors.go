package ethapp

import (
	"fmt"

	"github.com/pkg/errors"
	"github/chapool/go-ledger/internal/ledger/apdu"
)

var (
	ErrEmptyMessage            = errors.New("empty message")
	ErrMessageTooLarge         = errors.New("message too large")
	ErrInvalidChunkPayloadType = errors.New("chunked message must start with the first-chunk flag")
	ErrNoSignature             = errors.New("no signature")
	ErrInvalidSignature        = errors.New("invalid signature")
	ErrTickerOutOfBounds       = errors.New("ticker length out of bounds")
)

// DeviceError is returned when the device answers with a status word other than 0x9000
type DeviceError struct {
	Code        apdu.StatusWord
	Description string
	// Known is false when the status word is missing from the device table
	Known bool
}

func (e *DeviceError) Error() string {
	if !e.Known {
		return fmt.Sprintf("unknown device error %s", e.Code)
	}

	return fmt.Sprintf("device error %s: %s", e.Code, e.Description)
}

// MissingResponseDataError names the response field that could not be extracted
type MissingResponseDataError struct {
	Field string
}

func (e *MissingResponseDataError) Error() string {
	return "missing response data: " + e.Field
}

func missing(field string) error {
	return &MissingResponseDataError{Field: field}
}

// TransportError wraps a failure of the underlying channel
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "transport: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// checkAnswer maps the status word of an answer to nil or a *DeviceError
func checkAnswer(answer *apdu.Answer) error {
	if answer.StatusWord == apdu.SWNoError {
		return nil
	}

	desc, ok := answer.StatusWord.Description()
	if !ok {
		return &DeviceError{Code: answer.StatusWord, Description: "Unknown", Known: false}
	}

	return &DeviceError{Code: answer.StatusWord, Description: desc, Known: true}
}

// IsDeviceError reports whether err carries the given device status word
func IsDeviceError(err error, code apdu.StatusWord) bool {
	var deviceErr *DeviceError
	return errors.As(err, &deviceErr) && deviceErr.Code == code
}
