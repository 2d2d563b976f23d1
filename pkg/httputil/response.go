package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	apperrors "github.com/Mnabil10/fasketfornt-sub000/pkg/errors"
	"github.com/Mnabil10/fasketfornt-sub000/pkg/logger"
	"github.com/Mnabil10/fasketfornt-sub000/pkg/validator"
)

// Response is the JSON envelope every handler replies with.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse carries a machine-readable code alongside the message.
// RequestID echoes the correlation ID so a client report can be matched
// to server logs.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON writes v as JSON with the given status. Encoding errors are
// unrecoverable at this point since the header has been sent.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err onto the error envelope. AppErrors carry their
// own status and code, bare sentinels get a fixed mapping, and anything
// unrecognized becomes a 500 and is logged. The request-scoped logger
// is preferred over fallback when the logging middleware has run.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() {
		l = fallback
	}
	requestID := logger.CorrelationIDFromContext(r.Context())

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		writeErrorBody(w, appErr.Status, appErr.Code, appErr.Message, requestID)
		return
	}

	status, code, message := sentinelResponse(err)
	if status == http.StatusInternalServerError {
		l.ErrorContext(r.Context(), "internal error",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}
	writeErrorBody(w, status, code, message, requestID)
}

// sentinelResponse maps bare sentinel errors onto a status, code and
// client-safe message. Unrecognized errors collapse onto a generic
// internal error so internals never leak to the client.
func sentinelResponse(err error) (int, string, string) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "resource not found"
	case errors.Is(err, apperrors.ErrInvalidInput):
		return http.StatusBadRequest, "INVALID_INPUT", err.Error()
	case errors.Is(err, apperrors.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "payload too large"
	case errors.Is(err, apperrors.ErrUpstreamFailed):
		return http.StatusBadGateway, "UPSTREAM_FAILED", err.Error()
	default:
		return apperrors.HTTPStatus(err), "INTERNAL_ERROR", "an internal error occurred"
	}
}

func writeErrorBody(w http.ResponseWriter, status int, code, message, requestID string) {
	WriteJSON(w, status, Response{
		Error: &ErrorResponse{Code: code, Message: message, RequestID: requestID},
	})
}

// WriteValidationError renders field-level validation failures. Errors
// that are not ValidationErrors degrade to a plain INVALID_INPUT body.
func WriteValidationError(w http.ResponseWriter, err error) {
	var valErr *validator.ValidationError
	if !errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, Response{
			Error: &ErrorResponse{Code: "INVALID_INPUT", Message: err.Error()},
		})
		return
	}

	WriteJSON(w, http.StatusBadRequest, Response{
		Error: &ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "request validation failed",
			Fields:  valErr.Fields(),
		},
	})
}

// ParseOptionalInt64 reads an optional numeric query or form field.
// Empty means unset and yields zero. A malformed value writes a 400
// with code INVALID_PARAMETER and returns false so the handler can
// stop.
func ParseOptionalInt64(w http.ResponseWriter, field, value string) (int64, bool) {
	if value == "" {
		return 0, true
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		WriteJSON(w, http.StatusBadRequest, Response{
			Error: &ErrorResponse{
				Code:    "INVALID_PARAMETER",
				Message: "invalid numeric value for " + field + ": " + value,
			},
		})
		return 0, false
	}
	return n, true
}
