package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// uploadsTotal counts upload outcomes. The driver label is the tier
	// that stored the payload; failures carry driver "none".
	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upload_requests_total",
			Help: "Upload outcomes by status and transport driver",
		},
		[]string{"status", "driver"},
	)

	// uploadPayloadBytes observes payload sizes at pipeline entry and exit.
	uploadPayloadBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upload_payload_bytes",
			Help:    "Payload sizes entering and leaving the pipeline",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10), // 1KiB .. 256MiB
		},
		[]string{"stage"},
	)

	// compressionAttempts observes encode attempts per image upload.
	compressionAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "upload_compression_attempts",
			Help:    "Encode attempts per image upload",
			Buckets: prometheus.LinearBuckets(1, 1, 6),
		},
	)
)

const (
	statusOK             = "ok"
	statusTooLarge       = "too_large"
	statusInvalid        = "invalid"
	statusUnconverged    = "unconverged"
	statusTransportError = "transport_error"
)
