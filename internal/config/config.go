package config

import (
	"fmt"
	"time"

	"github.com/Mnabil10/fasketfornt-sub000/internal/domain"
	pkgconfig "github.com/Mnabil10/fasketfornt-sub000/pkg/config"
	"github.com/Mnabil10/fasketfornt-sub000/pkg/validator"
)

// Config holds all configuration for the media gateway.
type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"media-gateway"`
	Environment string `env:"APP_ENV" envDefault:"development" validate:"oneof=development staging production"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	HTTP    HTTPConfig
	Upload  UploadConfig
	Backend BackendConfig
	Kafka   KafkaConfig
	Tracing TracingConfig
}

// HTTPConfig configures the inbound HTTP server.
type HTTPConfig struct {
	Port            int           `env:"HTTP_PORT" envDefault:"8087" validate:"gt=0,lte=65535"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// CORSOrigins lists the origins allowed to post uploads from the browser.
	// "*" is only honored in development.
	CORSOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// PprofCIDRs restricts the pprof endpoints; they are mounted only outside
	// production.
	PprofCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.1/32" envSeparator:","`
}

// UploadConfig is the compression budget baseline. Requests may tighten these
// values per upload but never exceed them.
type UploadConfig struct {
	MaxBytes       int64   `env:"UPLOAD_MAX_BYTES" envDefault:"10485760" validate:"gt=0"`
	MaxDimension   int     `env:"UPLOAD_MAX_DIMENSION" envDefault:"4096" validate:"gt=0"`
	InitialQuality float64 `env:"UPLOAD_INITIAL_QUALITY" envDefault:"0.9" validate:"gt=0,lte=1"`
	QualityFloor   float64 `env:"UPLOAD_QUALITY_FLOOR" envDefault:"0.45" validate:"gt=0,ltefield=InitialQuality"`
	MaxAttempts    int     `env:"UPLOAD_MAX_ATTEMPTS" envDefault:"6" validate:"gte=1,lte=12"`
}

// BackendConfig configures the platform backend transport. An empty BaseURL
// switches the gateway to the in-memory store for local development.
type BackendConfig struct {
	BaseURL    string        `env:"BACKEND_BASE_URL" envDefault:"" validate:"omitempty,url"`
	SignPath   string        `env:"BACKEND_SIGN_PATH" envDefault:"/api/v1/uploads/sign"`
	UploadPath string        `env:"BACKEND_UPLOAD_PATH" envDefault:"/api/v1/uploads"`
	Token      string        `env:"BACKEND_TOKEN" envDefault:""`
	Timeout    time.Duration `env:"BACKEND_TIMEOUT" envDefault:"30s"`
}

// KafkaConfig configures event publishing.
type KafkaConfig struct {
	Brokers       []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	EventsEnabled bool     `env:"EVENTS_ENABLED" envDefault:"true"`
}

// TracingConfig configures the OTLP trace exporter.
type TracingConfig struct {
	Enabled      bool    `env:"OTEL_TRACES_ENABLED" envDefault:"false"`
	OTLPEndpoint string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	SampleRate   float64 `env:"OTEL_TRACES_SAMPLE_RATE" envDefault:"1.0" validate:"gte=0,lte=1"`
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load media-gateway config: %w", err)
	}
	if err := validator.Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate media-gateway config: %w", err)
	}
	return cfg, nil
}

// Budget returns the configured compression budget.
func (c *Config) Budget() domain.Budget {
	return domain.Budget{
		MaxBytes:       c.Upload.MaxBytes,
		MaxDimension:   c.Upload.MaxDimension,
		InitialQuality: c.Upload.InitialQuality,
		QualityFloor:   c.Upload.QualityFloor,
		MaxAttempts:    c.Upload.MaxAttempts,
	}
}
