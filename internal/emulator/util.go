package emulator

import (
	"io"

	"github.com/pkg/errors"
)

func isEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
