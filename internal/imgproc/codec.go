// Package imgproc holds the pixel side of the upload pipeline: a codec
// that decodes payload bytes and re-encodes them at a target size, and the
// adaptive search that drives it toward a byte budget.
package imgproc

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // webp decode support; imaging registers jpeg/png/gif
)

// Decoded is a decoded image along with its pixel dimensions.
type Decoded struct {
	Image  image.Image
	Width  int
	Height int
}

// LongEdge returns the larger of the two pixel dimensions.
func (d *Decoded) LongEdge() int {
	if d.Width > d.Height {
		return d.Width
	}
	return d.Height
}

// Codec turns payload bytes into pixels and pixels back into payload bytes.
// It is the only component that touches pixel data; everything else treats
// payloads as opaque. Implementations must preserve aspect ratio and never
// upscale past the source resolution.
type Codec interface {
	Decode(ctx context.Context, data []byte) (*Decoded, error)
	Encode(ctx context.Context, d *Decoded, width, height int, quality float64, contentType string) ([]byte, error)
}

// ImagingCodec implements Codec on disintegration/imaging. Decoding honors
// EXIF orientation; resizing uses Lanczos resampling.
type ImagingCodec struct{}

func NewImagingCodec() *ImagingCodec {
	return &ImagingCodec{}
}

// Decode reads any registered image format and returns the pixels with
// orientation already applied, so reported dimensions match what a viewer
// would see.
func (c *ImagingCodec) Decode(ctx context.Context, data []byte) (*Decoded, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	bounds := img.Bounds()
	return &Decoded{Image: img, Width: bounds.Dx(), Height: bounds.Dy()}, nil
}

// Encode resizes d to width x height and serializes it as contentType.
// Targets larger than the source are clamped (downscale only). Quality is
// a 0..1 factor and applies to JPEG output; PNG and GIF ignore it.
func (c *ImagingCodec) Encode(ctx context.Context, d *Decoded, width, height int, quality float64, contentType string) ([]byte, error) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	if width > d.Width {
		width = d.Width
	}
	if height > d.Height {
		height = d.Height
	}

	img := d.Image
	if width != d.Width || height != d.Height {
		img = imaging.Resize(img, width, height, imaging.Lanczos)
	}

	var buf bytes.Buffer
	switch contentType {
	case "image/jpeg":
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality(quality))); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
	case "image/png":
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
	case "image/gif":
		if err := imaging.Encode(&buf, img, imaging.GIF); err != nil {
			return nil, fmt.Errorf("encode gif: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported encode type %q", contentType)
	}
	return buf.Bytes(), nil
}

// jpegQuality maps a 0..1 quality factor onto the 1..100 scale the JPEG
// encoder expects.
func jpegQuality(quality float64) int {
	q := int(math.Round(quality * 100))
	if q < 1 {
		return 1
	}
	if q > 100 {
		return 100
	}
	return q
}
