package transport

import (
	"context"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github/chapool/go-ledger/internal/config"
	"github/chapool/go-ledger/internal/ledger/apdu"
)

// Exchanger moves one request frame to the device and returns its answer.
// Implementations are not required to support concurrent exchanges.
type Exchanger interface {
	Exchange(ctx context.Context, cmd apdu.Command) (*apdu.Answer, error)
}

// Device is an Exchanger owning a connection that must be released
type Device interface {
	Exchanger
	io.Closer
}

// ExchangeFunc adapts a plain function to the Exchanger interface
type ExchangeFunc func(ctx context.Context, cmd apdu.Command) (*apdu.Answer, error)

func (f ExchangeFunc) Exchange(ctx context.Context, cmd apdu.Command) (*apdu.Answer, error) {
	return f(ctx, cmd)
}

// Open connects to the device named by cfg.
// The emulator transport is in-process and is opened by the caller instead.
//
//nolint:ireturn // Returning interface is intentional, the concrete transport depends on config
func Open(ctx context.Context, cfg config.Device) (Device, error) {
	switch {
	case strings.EqualFold(cfg.Transport, config.TransportTCP):
		return DialTCP(ctx, cfg.Address)
	case strings.EqualFold(cfg.Transport, config.TransportHTTP):
		return NewHTTP(cfg.Address, cfg.Timeout), nil
	default:
		return nil, errors.Errorf("unsupported transport: %s", cfg.Transport)
	}
}
