package storage

import "context"

// Driver tags reporting which transport path stored a payload.
const (
	DriverDirect  = "direct"
	DriverProxied = "proxied"
	DriverInline  = "inline"
)

// Store delivers a ready payload to durable storage and returns its public
// reference.
type Store interface {
	Upload(ctx context.Context, input *UploadInput) (*UploadResult, error)
}

// UploadInput holds one payload to be stored. Data is a full byte slice
// rather than a reader because the tiered transport may send the same
// payload twice (direct attempt, then proxy fallback).
type UploadInput struct {
	FileName    string
	ContentType string
	Data        []byte
}

// UploadResult reports where a payload landed.
type UploadResult struct {
	URL      string
	Driver   string
	Warnings []string
}
