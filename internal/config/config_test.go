package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "media-gateway", cfg.ServiceName)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8087, cfg.HTTP.Port)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ShutdownTimeout)

	assert.Equal(t, int64(10*1024*1024), cfg.Upload.MaxBytes)
	assert.Equal(t, 4096, cfg.Upload.MaxDimension)
	assert.InDelta(t, 0.9, cfg.Upload.InitialQuality, 0.0001)
	assert.InDelta(t, 0.45, cfg.Upload.QualityFloor, 0.0001)
	assert.Equal(t, 6, cfg.Upload.MaxAttempts)

	assert.Equal(t, "", cfg.Backend.BaseURL)
	assert.Equal(t, "/api/v1/uploads/sign", cfg.Backend.SignPath)
	assert.Equal(t, "/api/v1/uploads", cfg.Backend.UploadPath)
	assert.Equal(t, 30*time.Second, cfg.Backend.Timeout)

	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.EventsEnabled)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestLoad_FromEnvVars(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("UPLOAD_MAX_BYTES", "5242880")
	t.Setenv("UPLOAD_MAX_DIMENSION", "2048")
	t.Setenv("BACKEND_BASE_URL", "https://api.fasket.app")
	t.Setenv("BACKEND_TOKEN", "backend-secret")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("EVENTS_ENABLED", "false")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, int64(5242880), cfg.Upload.MaxBytes)
	assert.Equal(t, 2048, cfg.Upload.MaxDimension)
	assert.Equal(t, "https://api.fasket.app", cfg.Backend.BaseURL)
	assert.Equal(t, "backend-secret", cfg.Backend.Token)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.Kafka.EventsEnabled)
}

func TestLoad_InvalidHTTPPort(t *testing.T) {
	t.Setenv("HTTP_PORT", "0")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate media-gateway config")
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate media-gateway config")
}

func TestLoad_QualityFloorAboveInitialQuality(t *testing.T) {
	t.Setenv("UPLOAD_INITIAL_QUALITY", "0.5")
	t.Setenv("UPLOAD_QUALITY_FLOOR", "0.8")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "QualityFloor")
}

func TestLoad_InvalidBackendURL(t *testing.T) {
	t.Setenv("BACKEND_BASE_URL", "not a url")

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Error(t, err)
}

func TestLoad_UnparsableDuration(t *testing.T) {
	t.Setenv("BACKEND_TIMEOUT", "soon")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load media-gateway config")
}

func TestConfig_Budget(t *testing.T) {
	t.Setenv("UPLOAD_MAX_BYTES", "2097152")
	t.Setenv("UPLOAD_MAX_DIMENSION", "1600")

	cfg, err := Load()
	require.NoError(t, err)

	budget := cfg.Budget()
	assert.Equal(t, int64(2097152), budget.MaxBytes)
	assert.Equal(t, 1600, budget.MaxDimension)
	assert.InDelta(t, 0.9, budget.InitialQuality, 0.0001)
	assert.InDelta(t, 0.45, budget.QualityFloor, 0.0001)
	assert.Equal(t, 6, budget.MaxAttempts)
}
