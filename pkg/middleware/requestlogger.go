package middleware

import (
	"log/slog"
	"net/http"

	"github.com/Mnabil10/fasketfornt-sub000/pkg/logger"
)

// RequestLogger stores a request-scoped logger in the context, already
// enriched with correlation_id, trace_id and span_id. Handlers fetch it
// with logger.FromContext and attach upload_id once one exists.
//
// Mount it after RequestLogging, which sets the correlation ID, and
// after Tracing, which opens the span.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
