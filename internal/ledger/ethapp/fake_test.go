package ethapp_test

import (
	"context"
	"errors"
	"testing"

	"github/chapool/go-ledger/internal/ledger/apdu"
)

// scriptedTransport replays a fixed list of answers and records every command it receives
type scriptedTransport struct {
	t        *testing.T
	answers  []scriptedAnswer
	commands []apdu.Command
}

type scriptedAnswer struct {
	answer *apdu.Answer
	err    error
}

func ok(data ...byte) scriptedAnswer {
	return scriptedAnswer{answer: apdu.NewAnswer(apdu.SWNoError, data)}
}

func status(sw apdu.StatusWord) scriptedAnswer {
	return scriptedAnswer{answer: apdu.NewAnswer(sw, nil)}
}

func fail(err error) scriptedAnswer {
	return scriptedAnswer{err: err}
}

var errUnexpectedExchange = errors.New("unexpected exchange")

func newScripted(t *testing.T, answers ...scriptedAnswer) *scriptedTransport {
	t.Helper()
	return &scriptedTransport{t: t, answers: answers}
}

func (s *scriptedTransport) Exchange(_ context.Context, cmd apdu.Command) (*apdu.Answer, error) {
	data := append([]byte(nil), cmd.Data...)
	cmd.Data = data
	s.commands = append(s.commands, cmd)

	if len(s.answers) == 0 {
		s.t.Errorf("unexpected exchange #%d: %+v", len(s.commands), cmd)
		return nil, errUnexpectedExchange
	}

	next := s.answers[0]
	s.answers = s.answers[1:]
	return next.answer, next.err
}
