package domain

import (
	"path"
	"strings"
)

// ImageContentTypes is the set of content types the pipeline decodes and
// recompresses. Anything else passes through the gateway as opaque bytes.
var ImageContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// ContentTypeJPEG is the lossy output type used whenever recompression
// forces a format change. PNG and GIF have no quality axis to trade
// against size, and webp has no Go encoder, so all three convert here.
const ContentTypeJPEG = "image/jpeg"

// MaxUploadBytes is the absolute raw-size ceiling in bytes (10 MB),
// enforced before any decode work.
const MaxUploadBytes int64 = 10 * 1024 * 1024

// IsImage checks whether the declared content type is decodable.
func IsImage(contentType string) bool {
	return ImageContentTypes[contentType]
}

// Budget bounds one adaptive compression run.
type Budget struct {
	MaxBytes       int64
	MaxDimension   int
	InitialQuality float64
	QualityFloor   float64
	MaxAttempts    int
}

// DefaultBudget returns the stock budget: the byte target matches the
// upload ceiling, with the standard quality ladder. Callers tighten it per
// asset class (e.g. 2 MB for catalog thumbnails).
func DefaultBudget() Budget {
	return Budget{
		MaxBytes:       MaxUploadBytes,
		MaxDimension:   4096,
		InitialQuality: 0.9,
		QualityFloor:   0.45,
		MaxAttempts:    6,
	}
}

// JPEGFileName rewrites the extension of name to .jpg for payloads the
// encoder converted to JPEG. A name without an extension gains one.
func JPEGFileName(name string) string {
	ext := path.Ext(name)
	if ext == "" {
		return name + ".jpg"
	}
	return strings.TrimSuffix(name, ext) + ".jpg"
}

// UploadResult is the externally visible outcome of a successful upload.
// URL is always a non-empty absolute reference.
type UploadResult struct {
	URL      string   `json:"url"`
	Warnings []string `json:"warnings,omitempty"`
}
