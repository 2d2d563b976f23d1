package http

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/Mnabil10/fasketfornt-sub000/internal/domain"
	"github.com/Mnabil10/fasketfornt-sub000/internal/service"
	apperrors "github.com/Mnabil10/fasketfornt-sub000/pkg/errors"
	"github.com/Mnabil10/fasketfornt-sub000/pkg/httputil"
	"github.com/Mnabil10/fasketfornt-sub000/pkg/logger"
)

// UploadHandler handles HTTP requests for media upload endpoints.
type UploadHandler struct {
	service *service.UploadService
	logger  *slog.Logger
}

// NewUploadHandler creates a new upload HTTP handler.
func NewUploadHandler(svc *service.UploadService, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{
		service: svc,
		logger:  logger,
	}
}

// Upload handles POST /api/v1/media (multipart/form-data).
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	// Assign the upload ID before any parsing so the response header and
	// every log record carry it, whatever happens next.
	uploadID := uuid.New().String()
	w.Header().Set("X-Upload-ID", uploadID)
	r = r.WithContext(logger.WithUploadID(r.Context(), uploadID))

	// The body cap leaves 1MB of headroom over the file limit for the
	// other multipart fields.
	maxSize := domain.MaxUploadBytes + (1 << 20)
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(domain.MaxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httputil.WriteError(w, r, apperrors.TooLarge(fmt.Sprintf(
				"file exceeds the maximum allowed size of %d MB", domain.MaxUploadBytes/(1024*1024),
			)), h.logger)
			return
		}
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "failed to parse multipart form: " + err.Error()},
		})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "file is required: " + err.Error()},
		})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	maxBytes, ok := httputil.ParseOptionalInt64(w, "max_bytes", r.FormValue("max_bytes"))
	if !ok {
		return
	}
	maxDimension, ok := httputil.ParseOptionalInt64(w, "max_dimension", r.FormValue("max_dimension"))
	if !ok {
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "failed to read file: " + err.Error()},
		})
		return
	}

	input := &service.UploadInput{
		FileName:     header.Filename,
		ContentType:  contentType,
		Data:         data,
		MaxBytes:     maxBytes,
		MaxDimension: int(maxDimension),
	}

	result, err := h.service.Upload(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: result})
}
