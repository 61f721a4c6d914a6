package transport

import (
	"context"
	"fmt"
	"time"

	"github/chapool/go-ledger/internal/ledger/apdu"
	"github/chapool/go-ledger/internal/metrics"
	"github/chapool/go-ledger/internal/util"
)

type instrumented struct {
	next    Exchanger
	metrics *metrics.Service
}

// Instrument wraps an exchanger with debug logging and, when m is not nil, exchange metrics
//
//nolint:ireturn // Returning interface is intentional for decoration
func Instrument(next Exchanger, m *metrics.Service) Exchanger {
	return &instrumented{next: next, metrics: m}
}

func (i *instrumented) Exchange(ctx context.Context, cmd apdu.Command) (*apdu.Answer, error) {
	log := util.LogFromContext(ctx)
	ins := fmt.Sprintf("0x%02X", cmd.INS)

	start := time.Now()
	answer, err := i.next.Exchange(ctx, cmd)
	elapsed := time.Since(start)

	if err != nil {
		log.Warn().Err(err).Str("ins", ins).Dur("elapsed", elapsed).Msg("APDU exchange failed")
		if i.metrics != nil {
			i.metrics.RecordFailure(ins, elapsed)
		}
		return nil, err
	}

	log.Debug().
		Str("ins", ins).
		Uint8("p1", cmd.P1).
		Uint8("p2", cmd.P2).
		Int("request_len", len(cmd.Data)).
		Int("response_len", len(answer.Data)).
		Stringer("sw", answer.StatusWord).
		Dur("elapsed", elapsed).
		Msg("APDU exchanged")

	if i.metrics != nil {
		i.metrics.RecordExchange(ins, answer.StatusWord.String(), elapsed)
	}

	return answer, nil
}
