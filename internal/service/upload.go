package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Mnabil10/fasketfornt-sub000/internal/domain"
	"github.com/Mnabil10/fasketfornt-sub000/internal/event"
	"github.com/Mnabil10/fasketfornt-sub000/internal/imgproc"
	"github.com/Mnabil10/fasketfornt-sub000/internal/storage"
	apperrors "github.com/Mnabil10/fasketfornt-sub000/pkg/errors"
	"github.com/Mnabil10/fasketfornt-sub000/pkg/logger"
)

// Compressor fits an image payload into a byte budget.
type Compressor interface {
	Compress(ctx context.Context, data []byte, contentType, fileName string, budget domain.Budget) (*imgproc.Result, error)
}

// UploadService is the public entry point of the pipeline: size guard,
// adaptive compression for images, then the tiered transport. Each call is
// independent; the service holds no per-upload state.
type UploadService struct {
	store      storage.Store
	compressor Compressor
	producer   *event.Producer
	budget     domain.Budget
	logger     *slog.Logger
}

// NewUploadService creates a new upload service. The budget is the configured
// baseline; requests may tighten it but never loosen it.
func NewUploadService(
	store storage.Store,
	compressor Compressor,
	producer *event.Producer,
	budget domain.Budget,
	logger *slog.Logger,
) *UploadService {
	return &UploadService{
		store:      store,
		compressor: compressor,
		producer:   producer,
		budget:     budget,
		logger:     logger,
	}
}

// UploadInput holds the parameters for one upload. MaxBytes and
// MaxDimension tighten the default compression budget when positive;
// non-image payloads ignore them and pass through untouched.
type UploadInput struct {
	FileName     string
	ContentType  string
	Data         []byte
	MaxBytes     int64
	MaxDimension int
}

// Upload runs the pipeline and returns the stored payload's public URL.
// Either the whole operation succeeds or a typed error reports the first
// unrecoverable step; no partial state is visible to the caller.
func (s *UploadService) Upload(ctx context.Context, input *UploadInput) (*domain.UploadResult, error) {
	uploadID := logger.UploadIDFromContext(ctx)
	if uploadID == "" {
		uploadID = uuid.New().String()
		ctx = logger.WithUploadID(ctx, uploadID)
	}
	log := logger.WithContext(ctx, s.logger)

	if input.FileName == "" {
		uploadsTotal.WithLabelValues(statusInvalid, "none").Inc()
		return nil, apperrors.InvalidInput("file name is required")
	}

	size := int64(len(input.Data))
	if size == 0 {
		uploadsTotal.WithLabelValues(statusInvalid, "none").Inc()
		return nil, apperrors.InvalidInput("file is empty")
	}

	if input.MaxBytes < 0 || input.MaxDimension < 0 {
		uploadsTotal.WithLabelValues(statusInvalid, "none").Inc()
		return nil, apperrors.InvalidInput("max_bytes and max_dimension must be positive")
	}
	if input.MaxBytes > s.budget.MaxBytes {
		uploadsTotal.WithLabelValues(statusInvalid, "none").Inc()
		return nil, apperrors.InvalidInput(fmt.Sprintf(
			"max_bytes cannot exceed the configured ceiling of %d bytes", s.budget.MaxBytes,
		))
	}

	// Hard ceiling, checked before any decode work. Payloads this large can
	// never be made compliant within a reasonable attempt budget.
	if size > s.budget.MaxBytes {
		uploadsTotal.WithLabelValues(statusTooLarge, "none").Inc()
		return nil, apperrors.TooLarge(fmt.Sprintf(
			"file exceeds the maximum allowed size of %d MB", s.budget.MaxBytes/(1024*1024),
		))
	}
	uploadPayloadBytes.WithLabelValues("in").Observe(float64(size))

	budget := s.budget
	if input.MaxBytes > 0 {
		budget.MaxBytes = input.MaxBytes
	}
	if input.MaxDimension > 0 {
		budget.MaxDimension = input.MaxDimension
	}

	fileName := input.FileName
	contentType := input.ContentType
	data := input.Data
	compressed := false

	// Non-image payloads are opaque: no decode, no recompression.
	if domain.IsImage(contentType) {
		result, err := s.compressor.Compress(ctx, data, contentType, fileName, budget)
		if err != nil {
			return nil, s.compressionError(ctx, log, err)
		}
		data = result.Data
		contentType = result.ContentType
		fileName = result.FileName
		compressed = result.Compressed
		compressionAttempts.Observe(float64(result.Attempts))
	}

	result, err := s.store.Upload(ctx, &storage.UploadInput{
		FileName:    fileName,
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		uploadsTotal.WithLabelValues(statusTransportError, "none").Inc()
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	uploadsTotal.WithLabelValues(statusOK, result.Driver).Inc()
	uploadPayloadBytes.WithLabelValues("out").Observe(float64(len(data)))

	eventData := &event.MediaUploadedData{
		UploadID:    uploadID,
		URL:         result.URL,
		FileName:    fileName,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
		Driver:      result.Driver,
		Compressed:  compressed,
		Warnings:    result.Warnings,
	}
	// Publish event; errors are logged but do not fail the operation.
	if err := s.producer.PublishMediaUploaded(ctx, eventData); err != nil {
		log.ErrorContext(ctx, "failed to publish media.uploaded event",
			slog.String("error", err.Error()),
		)
	}

	log.InfoContext(ctx, "media uploaded",
		slog.String("file_name", fileName),
		slog.String("content_type", contentType),
		slog.String("driver", result.Driver),
		slog.Int64("size_in", size),
		slog.Int("size_out", len(data)),
		slog.Bool("compressed", compressed),
	)

	return &domain.UploadResult{
		URL:      result.URL,
		Warnings: result.Warnings,
	}, nil
}

// compressionError maps compressor failures onto the caller-facing
// taxonomy: exhausted budgets are unprocessable payloads, undecodable
// payloads are invalid input, and cancellation passes through.
func (s *UploadService) compressionError(ctx context.Context, log *slog.Logger, err error) error {
	var bex *imgproc.BudgetExceededError
	switch {
	case errors.As(err, &bex):
		uploadsTotal.WithLabelValues(statusUnconverged, "none").Inc()
		log.WarnContext(ctx, "compression did not converge",
			slog.Int64("max_bytes", bex.MaxBytes),
			slog.Int("attempts", bex.Attempts),
		)
		return apperrors.Unprocessable(bex.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		uploadsTotal.WithLabelValues(statusInvalid, "none").Inc()
		return apperrors.InvalidInput(fmt.Sprintf("could not process image: %v", err))
	}
}
