package util

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogFromContext returns the logger stored in ctx, falling back to the global logger
func LogFromContext(ctx context.Context) *zerolog.Logger {
	l := log.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		l = &log.Logger
	}

	return l
}

// WithOperation tags every log line emitted under the returned context with the
// operation name and a fresh correlation id
func WithOperation(ctx context.Context, operation string) context.Context {
	l := LogFromContext(ctx).With().
		Str("op", operation).
		Str("op_id", uuid.NewString()).
		Logger()

	return l.WithContext(ctx)
}
