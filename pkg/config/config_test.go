package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gatewayEnv struct {
	Port     int           `env:"LOADTEST_PORT" envDefault:"8087"`
	Host     string        `env:"LOADTEST_HOST" envDefault:"localhost"`
	LogLevel string        `env:"LOADTEST_LOG_LEVEL" envDefault:"info"`
	Debug    bool          `env:"LOADTEST_DEBUG" envDefault:"false"`
	Timeout  time.Duration `env:"LOADTEST_TIMEOUT" envDefault:"30s"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg gatewayEnv
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 8087, cfg.Port)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Debug)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("LOADTEST_PORT", "9090")
	t.Setenv("LOADTEST_HOST", "0.0.0.0")
	t.Setenv("LOADTEST_LOG_LEVEL", "debug")
	t.Setenv("LOADTEST_DEBUG", "true")
	t.Setenv("LOADTEST_TIMEOUT", "5s")

	var cfg gatewayEnv
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
}

func TestLoad_RequiredField(t *testing.T) {
	type tokenEnv struct {
		Token string `env:"LOADTEST_BACKEND_TOKEN,required"`
	}

	t.Run("missing", func(t *testing.T) {
		var cfg tokenEnv
		err := Load(&cfg)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse config")
	})

	t.Run("present", func(t *testing.T) {
		t.Setenv("LOADTEST_BACKEND_TOKEN", "secret-123")

		var cfg tokenEnv
		require.NoError(t, Load(&cfg))
		assert.Equal(t, "secret-123", cfg.Token)
	})
}

func TestLoad_MalformedValue(t *testing.T) {
	t.Setenv("LOADTEST_PORT", "not-a-number")

	var cfg gatewayEnv
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}
