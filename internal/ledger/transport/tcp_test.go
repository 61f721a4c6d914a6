package transport_test

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-ledger/internal/ledger/apdu"
	"github/chapool/go-ledger/internal/ledger/transport"
)

// serveTCP answers every command on the connection with handler's answer
func serveTCP(t *testing.T, handler func(apdu.Command) *apdu.Answer) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			raw, err := transport.ReadCommandFrame(conn)
			if err != nil {
				return
			}
			cmd, err := apdu.ParseCommand(raw)
			if err != nil {
				return
			}
			if err := transport.WriteAnswerFrame(conn, handler(cmd)); err != nil {
				return
			}
		}
	}()

	return ln.Addr().String()
}

func TestTCPExchange(t *testing.T) {
	addr := serveTCP(t, func(cmd apdu.Command) *apdu.Answer {
		return apdu.NewAnswer(apdu.SWNoError, append([]byte{cmd.INS, cmd.P1}, cmd.Data...))
	})

	tcp, err := transport.DialTCP(t.Context(), addr)
	require.NoError(t, err)
	defer tcp.Close()

	for i := range 3 {
		answer, err := tcp.Exchange(t.Context(), apdu.Command{CLA: 0xE0, INS: 0x04, P1: byte(i), Data: []byte{0xCA, 0xFE}})
		require.NoError(t, err)
		assert.Equal(t, apdu.SWNoError, answer.StatusWord)
		assert.Equal(t, []byte{0x04, byte(i), 0xCA, 0xFE}, answer.Data)
	}
}

func TestTCPExchangeStatusWord(t *testing.T) {
	addr := serveTCP(t, func(apdu.Command) *apdu.Answer {
		return apdu.NewAnswer(apdu.SWConditionsNotSatisfied, nil)
	})

	tcp, err := transport.DialTCP(t.Context(), addr)
	require.NoError(t, err)
	defer tcp.Close()

	answer, err := tcp.Exchange(t.Context(), apdu.Command{CLA: 0xE0, INS: 0x06})
	require.NoError(t, err)
	assert.Empty(t, answer.Data)
	assert.Equal(t, apdu.SWConditionsNotSatisfied, answer.StatusWord)
}

func TestTCPExchangeContextDeadline(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	// accept but never answer
	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()
	defer func() {
		select {
		case conn := <-accepted:
			_ = conn.Close()
		default:
		}
	}()

	tcp, err := transport.DialTCP(t.Context(), ln.Addr().String())
	require.NoError(t, err)
	defer tcp.Close()

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	_, err = tcp.Exchange(ctx, apdu.Command{CLA: 0xE0, INS: 0x06})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTCPExchangeRejectsOversizedCommand(t *testing.T) {
	tcp := transport.NewTCP(nil)

	_, err := tcp.Exchange(t.Context(), apdu.Command{Data: bytes.Repeat([]byte{0}, 300)})
	require.ErrorIs(t, err, apdu.ErrPayloadTooLarge)
}

func TestFrameCodec(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, transport.WriteCommandFrame(&buf, []byte{0xE0, 0x06, 0, 0, 0}))
	assert.Equal(t, []byte{0, 0, 0, 5, 0xE0, 0x06, 0, 0, 0}, buf.Bytes())

	raw, err := transport.ReadCommandFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xE0, 0x06, 0, 0, 0}, raw)

	buf.Reset()
	require.NoError(t, transport.WriteAnswerFrame(&buf, apdu.NewAnswer(apdu.SWNoError, []byte{1, 2, 3})))
	assert.Equal(t, []byte{0, 0, 0, 3, 1, 2, 3, 0x90, 0x00}, buf.Bytes())

	answer, err := transport.ReadAnswerFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, answer.Data)
	assert.Equal(t, apdu.SWNoError, answer.StatusWord)

	_, err = transport.ReadCommandFrame(bytes.NewReader([]byte{0, 0, 1, 0}))
	require.Error(t, err)
}
