package ethapp

import (
	"context"

	"github/chapool/go-ledger/internal/ledger/apdu"
	"github/chapool/go-ledger/internal/util"
)

const (
	// ChunkSize is the largest payload slice carried by one frame
	ChunkSize = 250
	// MaxChunks is the largest number of frames a chunked message may span
	MaxChunks = 255
)

// SplitChunks slices data into consecutive pieces of at most ChunkSize bytes.
// The pieces alias data.
func SplitChunks(data []byte) [][]byte {
	chunks := make([][]byte, 0, (len(data)+ChunkSize-1)/ChunkSize)
	for len(data) > 0 {
		n := min(ChunkSize, len(data))
		chunks = append(chunks, data[:n])
		data = data[n:]
	}

	return chunks
}

// SendChunks delivers cmd.Data across as many frames as needed and returns the
// answer to the last frame. cmd.P1 must be ChunkFirst. The first frame keeps
// cmd's parameters, the following frames carry ChunkSubsequent and P2 = 0.
// The first failing exchange aborts the transfer and its error is returned.
func (a *App) SendChunks(ctx context.Context, cmd apdu.Command) (*apdu.Answer, error) {
	log := util.LogFromContext(ctx)

	chunks := SplitChunks(cmd.Data)
	switch {
	case len(chunks) == 0:
		return nil, ErrEmptyMessage
	case len(chunks) > MaxChunks:
		return nil, ErrMessageTooLarge
	}

	if cmd.P1 != byte(ChunkFirst) {
		return nil, ErrInvalidChunkPayloadType
	}

	first := cmd
	first.Data = chunks[0]

	answer, err := a.exchange(ctx, first)
	if err != nil {
		log.Debug().Err(err).Int("chunks", len(chunks)).Msg("First chunk rejected")
		return nil, err
	}

	for i, chunk := range chunks[1:] {
		answer, err = a.exchange(ctx, apdu.Command{
			CLA:  cmd.CLA,
			INS:  cmd.INS,
			P1:   byte(ChunkSubsequent),
			P2:   0,
			Data: chunk,
		})
		if err != nil {
			log.Warn().Err(err).Int("chunk", i+2).Int("chunks", len(chunks)).Msg("Chunked transfer aborted")
			return nil, err
		}
	}

	return answer, nil
}
