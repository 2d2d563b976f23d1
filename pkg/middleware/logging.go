package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Mnabil10/fasketfornt-sub000/pkg/logger"
)

// loggingWriter counts response bytes alongside the status code.
type loggingWriter struct {
	http.ResponseWriter
	status   int
	bytesOut int
}

func (w *loggingWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *loggingWriter) Write(p []byte) (int, error) {
	n, err := w.ResponseWriter.Write(p)
	w.bytesOut += n
	return n, err
}

// RequestLogging emits one access log line per request. The correlation
// ID is taken from X-Correlation-ID or freshly generated, stored in the
// request context and echoed back in the response header. bytes_in is
// the request body size, the number most worth watching on an upload
// gateway.
func RequestLogging(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			cid := r.Header.Get("X-Correlation-ID")
			if cid == "" {
				cid = uuid.New().String()
			}
			ctx := logger.WithCorrelationID(r.Context(), cid)
			r = r.WithContext(ctx)
			w.Header().Set("X-Correlation-ID", cid)

			lw := &loggingWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(lw, r)

			l.InfoContext(ctx, "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", lw.status),
				slog.Duration("duration", time.Since(start)),
				slog.Int64("bytes_in", max(r.ContentLength, 0)),
				slog.Int("bytes_out", lw.bytesOut),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("user_agent", r.UserAgent()),
				slog.String("correlation_id", cid),
			)
		})
	}
}
