// Package ethapp implements the command/response protocol of the Ethereum application
// running on a hardware signing device.
//
// Requests are framed as APDUs (see package apdu) and exchanged through a
// transport.Exchanger. Payloads larger than a single frame are split by SendChunks,
// every answer is classified by its status word and the final payload is decoded
// positionally into typed results.
//
// An App is stateless between calls but performs exchanges strictly in order; it does
// not lock the transport, so callers sharing one transport across goroutines must
// serialise operations themselves unless the transport does.
package ethapp

import (
	"context"

	"github/chapool/go-ledger/internal/ledger/apdu"
	"github/chapool/go-ledger/internal/ledger/transport"
)

// CLA identifies the Ethereum application on the device
const CLA byte = 0xE0

// InstructionCode selects the operation performed by the device
type InstructionCode byte

const (
	InsGetAddress            InstructionCode = 0x02
	InsSignTransaction       InstructionCode = 0x04
	InsGetAppConfiguration   InstructionCode = 0x06
	InsProvideERC20TokenInfo InstructionCode = 0x0A
)

// ChunkPayloadType tells the device how to concatenate a multi-frame payload
type ChunkPayloadType byte

const (
	ChunkFirst      ChunkPayloadType = 0x00
	ChunkSubsequent ChunkPayloadType = 0x80
)

// App talks to the Ethereum application over a transport
type App struct {
	transport transport.Exchanger
}

// New creates an App using the given transport
func New(t transport.Exchanger) *App {
	return &App{transport: t}
}

// exchange sends a single frame and classifies its answer
func (a *App) exchange(ctx context.Context, cmd apdu.Command) (*apdu.Answer, error) {
	if len(cmd.Data) > apdu.MaxDataLength {
		return nil, apdu.ErrPayloadTooLarge
	}

	answer, err := a.transport.Exchange(ctx, cmd)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if err := checkAnswer(answer); err != nil {
		return nil, err
	}

	return answer, nil
}

func command(ins InstructionCode, p1 byte, p2 byte, data []byte) apdu.Command {
	return apdu.Command{
		CLA:  CLA,
		INS:  byte(ins),
		P1:   p1,
		P2:   p2,
		Data: data,
	}
}
