package imgproc

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/Mnabil10/fasketfornt-sub000/internal/domain"
)

const (
	// qualityStep is how much each retry lowers the quality factor before
	// the search gives up on quality and shrinks dimensions instead.
	qualityStep = 0.15

	// dimensionShrink scales the target long edge down once quality has
	// bottomed out at the budget floor.
	dimensionShrink = 0.8
)

// BudgetExceededError reports a compression run that exhausted its attempt
// budget without producing an encoding under the byte target.
type BudgetExceededError struct {
	MaxBytes int64
	Attempts int
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("image could not be compressed to %d bytes within %d attempts", e.MaxBytes, e.Attempts)
}

// Result is the payload chosen by a compression run. ContentType and
// FileName reflect any forced format change; Compressed is false when the
// original bytes were kept untouched.
type Result struct {
	Data        []byte
	ContentType string
	FileName    string
	Width       int
	Height      int
	Attempts    int
	Compressed  bool
}

// Compressor drives a Codec through a bounded search for an encoding that
// fits a byte budget. Quality drops first since it costs less visually
// than resolution; dimensions shrink once quality reaches the floor, and
// the quality ladder restarts at each new size.
type Compressor struct {
	codec  Codec
	logger *slog.Logger
}

func NewCompressor(codec Codec, logger *slog.Logger) *Compressor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Compressor{codec: codec, logger: logger}
}

// Compress returns an encoding of data no larger than budget.MaxBytes.
//
// A source already inside the dimension cap is probed first: one encode at
// the original dimensions and initial quality. If that naive re-encode
// fits, the original payload is returned untouched. Otherwise the search
// walks quality down to the floor, then scales the target long edge by
// dimensionShrink and starts the quality ladder over, until an attempt
// fits or budget.MaxAttempts runs out.
//
// Lossless sources (and webp, which has no Go encoder) are re-encoded as
// JPEG; FileName in the result carries the matching extension.
func (c *Compressor) Compress(ctx context.Context, data []byte, contentType, fileName string, budget domain.Budget) (*Result, error) {
	decoded, err := c.codec.Decode(ctx, data)
	if err != nil {
		return nil, err
	}

	sourceLong := decoded.LongEdge()
	probed := sourceLong <= budget.MaxDimension

	targetLong := budget.MaxDimension
	if sourceLong < targetLong {
		targetLong = sourceLong
	}
	quality := budget.InitialQuality

	for attempt := 1; attempt <= budget.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		scale := float64(targetLong) / float64(sourceLong)
		width := scaleDim(decoded.Width, scale)
		height := scaleDim(decoded.Height, scale)

		// The first attempt on a source inside the dimension cap probes in
		// the source's own format; every later attempt encodes lossy.
		encodeType := domain.ContentTypeJPEG
		if probed && attempt == 1 {
			encodeType = probeType(contentType)
		}

		out, err := c.codec.Encode(ctx, decoded, width, height, quality, encodeType)
		if err != nil {
			return nil, err
		}

		c.logger.DebugContext(ctx, "compression attempt",
			slog.Int("attempt", attempt),
			slog.Int("width", width),
			slog.Int("height", height),
			slog.Float64("quality", quality),
			slog.Int("size_bytes", len(out)),
			slog.Int64("max_bytes", budget.MaxBytes),
		)

		if int64(len(out)) <= budget.MaxBytes {
			if probed && attempt == 1 && int64(len(data)) <= budget.MaxBytes {
				// The probe fits, so the untouched original is good enough.
				return &Result{
					Data:        data,
					ContentType: contentType,
					FileName:    fileName,
					Width:       decoded.Width,
					Height:      decoded.Height,
					Attempts:    attempt,
				}, nil
			}

			result := &Result{
				Data:        out,
				ContentType: encodeType,
				FileName:    fileName,
				Width:       width,
				Height:      height,
				Attempts:    attempt,
				Compressed:  true,
			}
			if encodeType != contentType {
				result.FileName = domain.JPEGFileName(fileName)
			}
			return result, nil
		}

		if quality-qualityStep >= budget.QualityFloor {
			quality -= qualityStep
		} else {
			targetLong = int(math.Round(float64(targetLong) * dimensionShrink))
			if targetLong < 1 {
				targetLong = 1
			}
			quality = budget.InitialQuality
		}
	}

	return nil, &BudgetExceededError{MaxBytes: budget.MaxBytes, Attempts: budget.MaxAttempts}
}

// probeType maps a source type to the format used for its probe encode.
// webp probes as JPEG, the type its recompressed form would take anyway.
func probeType(contentType string) string {
	if contentType == "image/webp" {
		return domain.ContentTypeJPEG
	}
	return contentType
}

func scaleDim(dim int, scale float64) int {
	n := int(math.Round(float64(dim) * scale))
	if n < 1 {
		return 1
	}
	return n
}
