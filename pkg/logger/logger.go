package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/trace"
)

type ctxKey int

const (
	ctxKeyCorrelationID ctxKey = iota
	ctxKeyUploadID
	ctxKeyLogger
)

var levelNames = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// parseLevel maps a config string to a slog level, defaulting to info.
func parseLevel(s string) slog.Level {
	if lvl, ok := levelNames[s]; ok {
		return lvl
	}
	return slog.LevelInfo
}

// New builds a JSON logger on stdout tagged with the service name and
// deployment environment.
func New(serviceName, environment, level string) *slog.Logger {
	return NewWithWriter(serviceName, environment, level, os.Stdout)
}

// NewWithWriter builds a JSON logger on w. Source locations are recorded
// only at debug level.
func NewWithWriter(serviceName, environment, level string, w io.Writer) *slog.Logger {
	lvl := parseLevel(level)
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	})

	return slog.New(h).With(
		slog.String("service", serviceName),
		slog.String("env", environment),
	)
}

// WithCorrelationID stores the request correlation ID in the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyCorrelationID, id)
}

// CorrelationIDFromContext returns the stored correlation ID, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyCorrelationID).(string)
	return id
}

// WithUploadID stores the ID assigned to an upload in the context so every
// record emitted while the pipeline runs can be tied back to it.
func WithUploadID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyUploadID, id)
}

// UploadIDFromContext returns the stored upload ID, or "".
func UploadIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyUploadID).(string)
	return id
}

// NewContext stores a request-scoped logger in the context.
func NewContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKeyLogger, l)
}

// FromContext returns the request-scoped logger, or slog.Default when the
// context carries none.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKeyLogger).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// WithContext derives a logger carrying whatever identifiers the context
// holds: correlation_id, upload_id, and the active trace and span IDs.
func WithContext(ctx context.Context, l *slog.Logger) *slog.Logger {
	attrs := make([]any, 0, 4)

	if id := CorrelationIDFromContext(ctx); id != "" {
		attrs = append(attrs, slog.String("correlation_id", id))
	}
	if id := UploadIDFromContext(ctx); id != "" {
		attrs = append(attrs, slog.String("upload_id", id))
	}
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		attrs = append(attrs,
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}

	if len(attrs) == 0 {
		return l
	}
	return l.With(attrs...)
}
