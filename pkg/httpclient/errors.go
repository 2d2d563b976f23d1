package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/Mnabil10/fasketfornt-sub000/pkg/errors"
)

// errorEnvelope is the error shape the platform backend wraps its
// rejections in.
type errorEnvelope struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError consumes and closes the body of a non-2xx response
// and turns it into an AppError. Structured envelopes keep the
// upstream's own message so callers see what the backend actually said;
// anything else collapses to a generic upstream failure naming
// serviceName and the status. Call it only for error statuses.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", serviceName, resp.StatusCode, err)
	}

	var envelope errorEnvelope
	if json.Unmarshal(raw, &envelope) != nil || envelope.Error == nil {
		return apperrors.Upstream(fmt.Sprintf("%s returned status %d", serviceName, resp.StatusCode))
	}

	// Auth and availability keep their own shape; every other upstream
	// rejection is a failed transfer.
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return apperrors.Unauthorized(envelope.Error.Message)
	case http.StatusServiceUnavailable:
		return apperrors.Unavailable(envelope.Error.Message)
	default:
		return apperrors.Upstream(envelope.Error.Message)
	}
}
