// Package logger builds the zerolog logger used by the server and carries it
// through request contexts.
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/rs/zerolog"
)

// ContextKey is the type for context keys owned by this package.
type ContextKey string

// LoggerKey is the context key for the logger.
const LoggerKey ContextKey = "logger"

// Options selects level and output format.
type Options struct {
	Level  string // trace, debug, info, warn, error
	Format string // "console" or "json"
}

// New creates a logger writing to stdout.
func New(opts Options) zerolog.Logger {
	return NewWithWriter(os.Stdout, opts)
}

// NewWithWriter creates a logger writing to w. Console format is human
// readable; anything else is one JSON object per line.
func NewWithWriter(w io.Writer, opts Options) zerolog.Logger {
	out := w
	if strings.EqualFold(opts.Format, "console") {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).
		Level(ParseLevel(opts.Level)).
		With().
		Timestamp().
		Logger()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	if s == "" {
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// WithContext returns a new context with the logger attached.
func WithContext(ctx context.Context, log zerolog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, log)
}

// FromContext retrieves the logger from context, or a disabled logger if none
// is attached.
func FromContext(ctx context.Context) zerolog.Logger {
	if log, ok := ctx.Value(LoggerKey).(zerolog.Logger); ok {
		return log
	}
	return zerolog.Nop()
}

// WithFields returns a child logger with the given fields.
func WithFields(log zerolog.Logger, fields map[string]interface{}) zerolog.Logger {
	return log.With().Fields(fields).Logger()
}

// Interceptor attaches log to every request context and logs one line per
// unary call with the procedure, duration and resulting connect code.
func Interceptor(log zerolog.Logger) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			reqLog := log.With().Str("procedure", req.Spec().Procedure).Logger()
			ctx = WithContext(ctx, reqLog)

			resp, err := next(ctx, req)

			ev := reqLog.Info()
			if err != nil {
				ev = reqLog.Warn().Str("code", connect.CodeOf(err).String()).Err(err)
			}
			ev.Dur("duration", time.Since(start)).Msg("rpc")
			return resp, err
		}
	}
}
