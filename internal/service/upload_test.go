package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Mnabil10/fasketfornt-sub000/internal/domain"
	"github.com/Mnabil10/fasketfornt-sub000/internal/event"
	"github.com/Mnabil10/fasketfornt-sub000/internal/imgproc"
	"github.com/Mnabil10/fasketfornt-sub000/internal/storage"
	apperrors "github.com/Mnabil10/fasketfornt-sub000/pkg/errors"
	pkgkafka "github.com/Mnabil10/fasketfornt-sub000/pkg/kafka"
	"github.com/Mnabil10/fasketfornt-sub000/pkg/logger"
)

// Compile-time checks that the mocks and the real compressor satisfy
// the service interfaces.
var _ storage.Store = (*mockStore)(nil)
var _ Compressor = (*mockCompressor)(nil)
var _ Compressor = (*imgproc.Compressor)(nil)

// --- Mock Store ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Upload(ctx context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.UploadResult), args.Error(1)
}

// --- Mock Compressor ---

type mockCompressor struct {
	mock.Mock
}

func (m *mockCompressor) Compress(ctx context.Context, data []byte, contentType, fileName string, budget domain.Budget) (*imgproc.Result, error) {
	args := m.Called(ctx, data, contentType, fileName, budget)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*imgproc.Result), args.Error(1)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestService(store *mockStore, comp *mockCompressor) *UploadService {
	log := newTestLogger()
	// A Kafka producer with no broker behind it; publishes fail silently.
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	producer := event.NewProducer(pkgkafka.NewProducer(kafkaCfg, log), log)
	return NewUploadService(store, comp, producer, domain.DefaultBudget(), log)
}

func storedResult(driver string) *storage.UploadResult {
	return &storage.UploadResult{
		URL:    "https://cdn.fasket.app/media/photo.jpg",
		Driver: driver,
	}
}

// ============================================================================
// Passthrough Tests
// ============================================================================

func TestUpload_NonImagePassesThrough(t *testing.T) {
	store := new(mockStore)
	comp := new(mockCompressor)
	svc := newTestService(store, comp)
	ctx := context.Background()

	pdf := []byte("%PDF-1.7 fake document body")
	store.On("Upload", mock.Anything, mock.AnythingOfType("*storage.UploadInput")).
		Return(&storage.UploadResult{URL: "https://cdn.fasket.app/media/manual.pdf", Driver: storage.DriverProxied}, nil)

	result, err := svc.Upload(ctx, &UploadInput{
		FileName:    "manual.pdf",
		ContentType: "application/pdf",
		Data:        pdf,
	})

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.fasket.app/media/manual.pdf", result.URL)

	// The codec is never invoked and the bytes reach storage unchanged.
	comp.AssertNotCalled(t, "Compress")
	sent := store.Calls[0].Arguments.Get(1).(*storage.UploadInput)
	assert.Equal(t, pdf, sent.Data)
	assert.Equal(t, "application/pdf", sent.ContentType)
	assert.Equal(t, "manual.pdf", sent.FileName)

	store.AssertExpectations(t)
}

func TestUpload_ImageGoesThroughCompressor(t *testing.T) {
	store := new(mockStore)
	comp := new(mockCompressor)
	svc := newTestService(store, comp)
	ctx := context.Background()

	comp.On("Compress", mock.Anything, []byte("raw png"), "image/png", "logo.png", mock.AnythingOfType("domain.Budget")).
		Return(&imgproc.Result{
			Data:        []byte("small jpeg"),
			ContentType: "image/jpeg",
			FileName:    "logo.jpg",
			Width:       800,
			Height:      600,
			Attempts:    2,
			Compressed:  true,
		}, nil)

	store.On("Upload", mock.Anything, mock.AnythingOfType("*storage.UploadInput")).
		Return(storedResult(storage.DriverDirect), nil)

	result, err := svc.Upload(ctx, &UploadInput{
		FileName:    "logo.png",
		ContentType: "image/png",
		Data:        []byte("raw png"),
	})

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.fasket.app/media/photo.jpg", result.URL)

	sent := store.Calls[0].Arguments.Get(1).(*storage.UploadInput)
	assert.Equal(t, []byte("small jpeg"), sent.Data)
	assert.Equal(t, "image/jpeg", sent.ContentType)
	assert.Equal(t, "logo.jpg", sent.FileName)

	comp.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestUpload_BudgetOverridesApplied(t *testing.T) {
	store := new(mockStore)
	comp := new(mockCompressor)
	svc := newTestService(store, comp)
	ctx := context.Background()

	var gotBudget domain.Budget
	comp.On("Compress", mock.Anything, mock.Anything, "image/jpeg", "photo.jpg", mock.AnythingOfType("domain.Budget")).
		Run(func(args mock.Arguments) {
			gotBudget = args.Get(4).(domain.Budget)
		}).
		Return(&imgproc.Result{Data: []byte("x"), ContentType: "image/jpeg", FileName: "photo.jpg", Compressed: true, Attempts: 1}, nil)

	store.On("Upload", mock.Anything, mock.Anything).Return(storedResult(storage.DriverDirect), nil)

	_, err := svc.Upload(ctx, &UploadInput{
		FileName:     "photo.jpg",
		ContentType:  "image/jpeg",
		Data:         []byte("jpeg bytes"),
		MaxBytes:     2 * 1024 * 1024,
		MaxDimension: 1600,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(2*1024*1024), gotBudget.MaxBytes)
	assert.Equal(t, 1600, gotBudget.MaxDimension)
	// Untouched knobs keep their defaults.
	assert.InDelta(t, 0.9, gotBudget.InitialQuality, 0.0001)
	assert.InDelta(t, 0.45, gotBudget.QualityFloor, 0.0001)
	assert.Equal(t, 6, gotBudget.MaxAttempts)
}

// ============================================================================
// Guard Tests
// ============================================================================

func TestUpload_RejectsOversizedPayload(t *testing.T) {
	store := new(mockStore)
	comp := new(mockCompressor)
	svc := newTestService(store, comp)
	ctx := context.Background()

	result, err := svc.Upload(ctx, &UploadInput{
		FileName:    "huge.jpg",
		ContentType: "image/jpeg",
		Data:        make([]byte, domain.MaxUploadBytes+1),
	})

	assert.Nil(t, result)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrTooLarge)
	// The ceiling is named in human units.
	assert.Contains(t, err.Error(), "10 MB")

	comp.AssertNotCalled(t, "Compress")
	store.AssertNotCalled(t, "Upload")
}

func TestUpload_RejectsEmptyPayload(t *testing.T) {
	store := new(mockStore)
	comp := new(mockCompressor)
	svc := newTestService(store, comp)

	result, err := svc.Upload(context.Background(), &UploadInput{
		FileName:    "empty.jpg",
		ContentType: "image/jpeg",
		Data:        nil,
	})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestUpload_RejectsMissingFileName(t *testing.T) {
	store := new(mockStore)
	comp := new(mockCompressor)
	svc := newTestService(store, comp)

	result, err := svc.Upload(context.Background(), &UploadInput{
		FileName:    "",
		ContentType: "image/jpeg",
		Data:        []byte("data"),
	})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestUpload_RejectsNegativeBudgetOverrides(t *testing.T) {
	store := new(mockStore)
	comp := new(mockCompressor)
	svc := newTestService(store, comp)

	result, err := svc.Upload(context.Background(), &UploadInput{
		FileName:    "photo.jpg",
		ContentType: "image/jpeg",
		Data:        []byte("jpeg bytes"),
		MaxBytes:    -1,
	})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	comp.AssertNotCalled(t, "Compress")
}

func TestUpload_RejectsBudgetAboveCeiling(t *testing.T) {
	store := new(mockStore)
	comp := new(mockCompressor)
	svc := newTestService(store, comp)

	result, err := svc.Upload(context.Background(), &UploadInput{
		FileName:    "photo.jpg",
		ContentType: "image/jpeg",
		Data:        []byte("jpeg bytes"),
		MaxBytes:    domain.MaxUploadBytes + 1,
	})

	assert.Nil(t, result)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Contains(t, err.Error(), "cannot exceed")
	comp.AssertNotCalled(t, "Compress")
}

// ============================================================================
// Compression Failure Tests
// ============================================================================

func TestUpload_UnconvergedCompressionIsUnprocessable(t *testing.T) {
	store := new(mockStore)
	comp := new(mockCompressor)
	svc := newTestService(store, comp)
	ctx := context.Background()

	comp.On("Compress", mock.Anything, mock.Anything, "image/jpeg", "dense.jpg", mock.Anything).
		Return(nil, &imgproc.BudgetExceededError{MaxBytes: 2 * 1024 * 1024, Attempts: 6})

	result, err := svc.Upload(ctx, &UploadInput{
		FileName:    "dense.jpg",
		ContentType: "image/jpeg",
		Data:        []byte("jpeg bytes"),
	})

	assert.Nil(t, result)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnprocessable)
	// The byte budget is part of the message.
	assert.Contains(t, err.Error(), "2097152 bytes")

	store.AssertNotCalled(t, "Upload")
}

func TestUpload_UndecodableImageIsInvalidInput(t *testing.T) {
	store := new(mockStore)
	comp := new(mockCompressor)
	svc := newTestService(store, comp)
	ctx := context.Background()

	comp.On("Compress", mock.Anything, mock.Anything, "image/png", "corrupt.png", mock.Anything).
		Return(nil, errors.New("decode image: unexpected EOF"))

	result, err := svc.Upload(ctx, &UploadInput{
		FileName:    "corrupt.png",
		ContentType: "image/png",
		Data:        []byte("not a png"),
	})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	store.AssertNotCalled(t, "Upload")
}

func TestUpload_CompressionCancellationPassesThrough(t *testing.T) {
	store := new(mockStore)
	comp := new(mockCompressor)
	svc := newTestService(store, comp)
	ctx := context.Background()

	comp.On("Compress", mock.Anything, mock.Anything, "image/jpeg", "photo.jpg", mock.Anything).
		Return(nil, context.Canceled)

	result, err := svc.Upload(ctx, &UploadInput{
		FileName:    "photo.jpg",
		ContentType: "image/jpeg",
		Data:        []byte("jpeg bytes"),
	})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, context.Canceled)
}

// ============================================================================
// Transport Failure Tests
// ============================================================================

func TestUpload_StorageErrorPropagatesBackendMessage(t *testing.T) {
	store := new(mockStore)
	comp := new(mockCompressor)
	svc := newTestService(store, comp)
	ctx := context.Background()

	store.On("Upload", mock.Anything, mock.Anything).
		Return(nil, apperrors.Upstream("unsupported file extension"))

	result, err := svc.Upload(ctx, &UploadInput{
		FileName:    "manual.pdf",
		ContentType: "application/pdf",
		Data:        []byte("pdf bytes"),
	})

	assert.Nil(t, result)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUpstreamFailed)
	assert.Contains(t, err.Error(), "unsupported file extension")

	store.AssertExpectations(t)
}

// ============================================================================
// Identity Tests
// ============================================================================

func TestUpload_ReusesUploadIDFromContext(t *testing.T) {
	store := new(mockStore)
	comp := new(mockCompressor)
	svc := newTestService(store, comp)

	ctx := logger.WithUploadID(context.Background(), "upl-preset-42")
	var gotCtx context.Context
	store.On("Upload", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			gotCtx = args.Get(0).(context.Context)
		}).
		Return(storedResult(storage.DriverInline), nil)

	_, err := svc.Upload(ctx, &UploadInput{
		FileName:    "file.bin",
		ContentType: "application/octet-stream",
		Data:        []byte("binary"),
	})

	require.NoError(t, err)
	assert.Equal(t, "upl-preset-42", logger.UploadIDFromContext(gotCtx))
}

func TestUpload_WarningsReachTheCaller(t *testing.T) {
	store := new(mockStore)
	comp := new(mockCompressor)
	svc := newTestService(store, comp)

	store.On("Upload", mock.Anything, mock.Anything).
		Return(&storage.UploadResult{
			URL:      "https://cdn.fasket.app/media/file.bin",
			Driver:   storage.DriverProxied,
			Warnings: []string{"nearing storage quota"},
		}, nil)

	result, err := svc.Upload(context.Background(), &UploadInput{
		FileName:    "file.bin",
		ContentType: "application/octet-stream",
		Data:        []byte("binary"),
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"nearing storage quota"}, result.Warnings)
}
