package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/Mnabil10/fasketfornt-sub000/pkg/kafka"
	"github.com/Mnabil10/fasketfornt-sub000/pkg/logger"
)

// TopicMediaUploaded carries one event per stored payload.
var TopicMediaUploaded = pkgkafka.Topic("media", "uploaded")

// AggregateTypeMedia tags every envelope published by this service.
const AggregateTypeMedia = "media"

// SourceMediaGateway identifies this service as the event origin.
const SourceMediaGateway = "media-gateway"

// MediaUploadedData describes a stored payload to downstream consumers.
type MediaUploadedData struct {
	UploadID    string   `json:"upload_id"`
	URL         string   `json:"url"`
	FileName    string   `json:"file_name"`
	ContentType string   `json:"content_type"`
	SizeBytes   int64    `json:"size_bytes"`
	Driver      string   `json:"driver"`
	Compressed  bool     `json:"compressed"`
	Warnings    []string `json:"warnings,omitempty"`
}

// Producer publishes media gateway events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the media gateway. A nil
// Kafka producer disables publishing, which is how EVENTS_ENABLED=false
// is wired.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// Enabled reports whether events will actually be published.
func (p *Producer) Enabled() bool {
	return p.kafka != nil
}

// PublishMediaUploaded publishes a media.uploaded event. The correlation ID
// from the request context rides along in the event envelope.
func (p *Producer) PublishMediaUploaded(ctx context.Context, data *MediaUploadedData) error {
	if p.kafka == nil {
		return nil
	}

	event, err := pkgkafka.NewEvent(TopicMediaUploaded, data.UploadID, AggregateTypeMedia, SourceMediaGateway, data)
	if err != nil {
		return fmt.Errorf("create media.uploaded event: %w", err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, TopicMediaUploaded, event); err != nil {
		return fmt.Errorf("publish media.uploaded event: %w", err)
	}

	p.logger.DebugContext(ctx, "published media.uploaded event",
		slog.String("upload_id", data.UploadID),
		slog.String("file_name", data.FileName),
	)

	return nil
}
