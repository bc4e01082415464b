// Package zapadapter provides a pgx logger that writes to a go.uber.org/zap.Logger
// tagging every entry with the id of the HTTP request that caused it.
package zapadapter

import (
	"context"

	"github.com/jackc/pgx/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type key string

var idKey key = "request_id"

// redacted lists pgx log fields never written out, query arguments carry contact details
var redacted = map[string]struct{}{
	"args": {},
}

// NewContextWithID returns ctx carrying request id
func NewContextWithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, idKey, id)
}

// IDFromContext returns request id stored by NewContextWithID
func IDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(idKey).(string)
	return id, ok && id != ""
}

type Logger struct {
	logger *zap.Logger
}

func NewLogger(logger *zap.Logger) *Logger {
	return &Logger{logger: logger.Named("pgx").WithOptions(zap.AddCallerSkip(1))}
}

var levels = map[pgx.LogLevel]zapcore.Level{
	pgx.LogLevelTrace: zapcore.DebugLevel,
	pgx.LogLevelDebug: zapcore.DebugLevel,
	pgx.LogLevelInfo:  zapcore.InfoLevel,
	pgx.LogLevelWarn:  zapcore.WarnLevel,
	pgx.LogLevelError: zapcore.ErrorLevel,
}

func (pl *Logger) Log(ctx context.Context, level pgx.LogLevel, msg string, data map[string]interface{}) {
	fields := make([]zapcore.Field, 0, len(data)+2)
	if id, ok := IDFromContext(ctx); ok {
		fields = append(fields, zap.String("request_id", id))
	}
	for k, v := range data {
		if _, skip := redacted[k]; skip {
			continue
		}
		fields = append(fields, zap.Any(k, v))
	}

	lvl, ok := levels[level]
	if !ok {
		lvl = zapcore.ErrorLevel
	}
	if !ok || level == pgx.LogLevelTrace {
		fields = append(fields, zap.Stringer("PGX_LOG_LEVEL", level))
	}

	if ce := pl.logger.Check(lvl, msg); ce != nil {
		ce.Write(fields...)
	}
}
