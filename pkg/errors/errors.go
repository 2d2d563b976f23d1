package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors callers can branch on with errors.Is.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrTooLarge       = errors.New("payload too large")
	ErrUnprocessable  = errors.New("unprocessable payload")
	ErrUpstreamFailed = errors.New("upstream request failed")
	ErrInternal       = errors.New("internal error")
	ErrServiceUnavail = errors.New("service unavailable")
)

// AppError carries a stable machine code, a human message, and the HTTP
// status the error should surface as.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newAppError(code string, status int, sentinel error, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     sentinel,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return newAppError("INVALID_INPUT", http.StatusBadRequest, ErrInvalidInput, message)
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *AppError {
	return newAppError("UNAUTHORIZED", http.StatusUnauthorized, ErrUnauthorized, message)
}

// NotFound creates a 404 error.
func NotFound(message string) *AppError {
	return newAppError("NOT_FOUND", http.StatusNotFound, ErrNotFound, message)
}

// TooLarge creates a 413 error for a payload over the size ceiling.
func TooLarge(message string) *AppError {
	return newAppError("PAYLOAD_TOO_LARGE", http.StatusRequestEntityTooLarge, ErrTooLarge, message)
}

// Unprocessable creates a 422 error for a payload that cannot be brought
// within its processing budget.
func Unprocessable(message string) *AppError {
	return newAppError("UNPROCESSABLE_PAYLOAD", http.StatusUnprocessableEntity, ErrUnprocessable, message)
}

// Internal creates a 500 error, keeping the cause out of the client-facing
// message.
func Internal(err error) *AppError {
	return newAppError("INTERNAL_ERROR", http.StatusInternalServerError, err, "an internal error occurred")
}

// Upstream creates a 502 error for a failed call to the platform backend.
func Upstream(message string) *AppError {
	return newAppError("UPSTREAM_FAILED", http.StatusBadGateway, ErrUpstreamFailed, message)
}

// Unavailable creates a 503 error.
func Unavailable(message string) *AppError {
	return newAppError("SERVICE_UNAVAILABLE", http.StatusServiceUnavailable, ErrServiceUnavail, message)
}

// Wrap prefixes err with context while keeping the chain intact.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

var statusBySentinel = []struct {
	err    error
	status int
}{
	{ErrNotFound, http.StatusNotFound},
	{ErrInvalidInput, http.StatusBadRequest},
	{ErrUnauthorized, http.StatusUnauthorized},
	{ErrTooLarge, http.StatusRequestEntityTooLarge},
	{ErrUnprocessable, http.StatusUnprocessableEntity},
	{ErrUpstreamFailed, http.StatusBadGateway},
	{ErrServiceUnavail, http.StatusServiceUnavailable},
}

// HTTPStatus maps err to an HTTP status code. An AppError anywhere in the
// chain wins; otherwise the sentinel mapping applies, defaulting to 500.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	for _, m := range statusBySentinel {
		if errors.Is(err, m.err) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}
