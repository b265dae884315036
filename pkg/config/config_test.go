package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/taskdesk/pkg/config"
)

// unsetAfter removes variables a .env file put into the process environment.
func unsetAfter(t *testing.T, keys ...string) {
	t.Helper()
	t.Cleanup(func() {
		for _, k := range keys {
			_ = os.Unsetenv(k)
		}
	})
}

func TestLoadAppDefaults(t *testing.T) {
	cfg, err := config.LoadApp()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000/api", cfg.APIBaseURL)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, config.StorageFile, cfg.StorageDriver)
	assert.Equal(t, 60*time.Second, cfg.ResendCooldown)
	assert.Equal(t, "EBADCSRFTOKEN", cfg.CSRFInvalidCode)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.ConnectionURL)
	assert.Equal(t, "development", cfg.Env)
	assert.Empty(t, cfg.LogLevel)
}

func TestLoadAppFromFiles(t *testing.T) {
	unsetAfter(t,
		"TASKDESK_API_BASE_URL", "TASKDESK_STORAGE_DRIVER",
		"TASKDESK_LOG_LEVEL", "TASKDESK_RESEND_COOLDOWN", "TASKDESK_LOG_FORMAT",
	)

	cfg, err := config.LoadApp("testdata/.env.app", "testdata/.env.override")
	require.NoError(t, err)

	assert.Equal(t, "https://market.example.com/api", cfg.APIBaseURL)
	assert.Equal(t, config.StorageMemory, cfg.StorageDriver)
	assert.Equal(t, "debug", cfg.LogLevel, "earlier file wins")
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ResendCooldown)
}

func TestLoadAppEnvironmentWinsOverFiles(t *testing.T) {
	unsetAfter(t,
		"TASKDESK_API_BASE_URL", "TASKDESK_STORAGE_DRIVER",
		"TASKDESK_RESEND_COOLDOWN",
	)
	t.Setenv("TASKDESK_LOG_LEVEL", "warn")

	cfg, err := config.LoadApp("testdata/.env.app")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadAppErrors(t *testing.T) {
	t.Run("missing env file", func(t *testing.T) {
		_, err := config.LoadApp("testdata/missing.env")
		assert.ErrorIs(t, err, config.ErrEnvFile)
	})

	t.Run("unparsable duration", func(t *testing.T) {
		t.Setenv("TASKDESK_HTTP_TIMEOUT", "soon")
		_, err := config.LoadApp()
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("unknown storage driver", func(t *testing.T) {
		t.Setenv("TASKDESK_STORAGE_DRIVER", "s3")
		_, err := config.LoadApp()
		require.ErrorIs(t, err, config.ErrInvalidConfig)
		assert.Contains(t, err.Error(), `unknown storage driver "s3"`)
	})
}

func TestAppValidate(t *testing.T) {
	t.Parallel()

	valid := config.App{
		APIBaseURL:      "https://api.example.com",
		HTTPTimeout:     time.Second,
		StorageDriver:   config.StorageRedis,
		ResendCooldown:  time.Minute,
		CSRFInvalidCode: "EBADCSRFTOKEN",
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*config.App)
		want   string
	}{
		{"relative url", func(a *config.App) { a.APIBaseURL = "/api" }, "absolute http(s) url"},
		{"ftp url", func(a *config.App) { a.APIBaseURL = "ftp://host" }, "absolute http(s) url"},
		{"zero timeout", func(a *config.App) { a.HTTPTimeout = 0 }, "http timeout"},
		{"zero cooldown", func(a *config.App) { a.ResendCooldown = 0 }, "resend cooldown"},
		{"empty csrf code", func(a *config.App) { a.CSRFInvalidCode = "" }, "csrf invalid code"},
		{"log format", func(a *config.App) { a.LogFormat = "xml" }, "log format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, config.ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

type cachedConfig struct {
	Value string `env:"TASKDESK_TEST_CACHED"`
}

func TestLoadCachesPerType(t *testing.T) {
	config.ResetCache()
	t.Cleanup(config.ResetCache)

	t.Setenv("TASKDESK_TEST_CACHED", "first")
	var cfg cachedConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "first", cfg.Value)

	t.Setenv("TASKDESK_TEST_CACHED", "second")
	var again cachedConfig
	require.NoError(t, config.Load(&again))
	assert.Equal(t, "first", again.Value)

	require.NoError(t, config.Reload(&again))
	assert.Equal(t, "second", again.Value)

	config.ResetCache()
	t.Setenv("TASKDESK_TEST_CACHED", "third")
	require.NoError(t, config.Load(&again))
	assert.Equal(t, "third", again.Value)
}

func TestLoadNilPointer(t *testing.T) {
	t.Parallel()
	assert.ErrorIs(t, config.Load[cachedConfig](nil), config.ErrNilPointer)
	assert.ErrorIs(t, config.Reload[cachedConfig](nil), config.ErrNilPointer)
	assert.Panics(t, func() { config.MustLoad[cachedConfig](nil) })
	assert.Panics(t, func() { config.MustLoadEnv("testdata/missing.env") })
}
