package transport

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github/chapool/go-ledger/internal/ledger/apdu"
)

// maxAnswerLength bounds the payload length a peer may announce
const maxAnswerLength = 64 * 1024

// TCP speaks the length-prefixed APDU socket protocol used by device bridges and emulators:
// request = uint32be(len) || apdu, answer = uint32be(len(data)) || data || sw1 sw2
type TCP struct {
	conn net.Conn
	mu   sync.Mutex
}

// DialTCP connects to a TCP device bridge
func DialTCP(ctx context.Context, addr string) (*TCP, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial device at %s", addr)
	}

	return &TCP{conn: conn}, nil
}

// NewTCP wraps an established connection
func NewTCP(conn net.Conn) *TCP {
	return &TCP{conn: conn}
}

// Exchange sends one command and waits for its answer.
// Cancelling ctx mid-exchange leaves the connection unusable.
func (t *TCP) Exchange(ctx context.Context, cmd apdu.Command) (*apdu.Answer, error) {
	raw, err := cmd.Serialize()
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	deadline, _ := ctx.Deadline()
	if err := t.conn.SetDeadline(deadline); err != nil {
		return nil, errors.Wrap(err, "failed to set connection deadline")
	}

	stop := context.AfterFunc(ctx, func() {
		_ = t.conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	if err := WriteCommandFrame(t.conn, raw); err != nil {
		return nil, contextOr(ctx, errors.Wrap(err, "failed to write command"))
	}

	answer, err := ReadAnswerFrame(t.conn)
	if err != nil {
		return nil, contextOr(ctx, errors.Wrap(err, "failed to read answer"))
	}

	return answer, nil
}

// Close closes the underlying connection
func (t *TCP) Close() error {
	return t.conn.Close()
}

// contextOr reports the context error when ctx caused the connection to fail
func contextOr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	// the socket deadline mirrors the ctx deadline and may fire first
	var netErr net.Error
	if _, ok := ctx.Deadline(); ok && errors.As(err, &netErr) && netErr.Timeout() {
		<-ctx.Done()
		return ctx.Err()
	}

	return err
}

// WriteCommandFrame writes a serialized APDU with its length prefix
func WriteCommandFrame(w io.Writer, raw []byte) error {
	//nolint:mnd // uint32 length prefix
	buf := make([]byte, 4+len(raw))
	binary.BigEndian.PutUint32(buf, uint32(len(raw))) //nolint:gosec // bounded by apdu.MaxDataLength
	copy(buf[4:], raw)

	_, err := w.Write(buf)
	return err
}

// ReadCommandFrame reads one length-prefixed APDU
func ReadCommandFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint32(header[:])
	//nolint:mnd // header plus the largest payload
	if length > 5+apdu.MaxDataLength {
		return nil, errors.Errorf("command frame of %d bytes exceeds limit", length)
	}

	raw := make([]byte, length)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, err
	}

	return raw, nil
}

// WriteAnswerFrame writes an answer as uint32be(len(data)) || data || sw
func WriteAnswerFrame(w io.Writer, answer *apdu.Answer) error {
	body := answer.Bytes()

	buf := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(buf, uint32(len(answer.Data))) //nolint:gosec // bounded by maxAnswerLength
	copy(buf[4:], body)

	_, err := w.Write(buf)
	return err
}

// ReadAnswerFrame reads one answer written by WriteAnswerFrame
func ReadAnswerFrame(r io.Reader) (*apdu.Answer, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint32(header[:])
	if length > maxAnswerLength {
		return nil, errors.Errorf("answer of %d bytes exceeds limit", length)
	}

	raw := make([]byte, int(length)+2)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, err
	}

	return apdu.ParseAnswer(raw)
}
