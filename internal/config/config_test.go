package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverMinio, cfg.StorageDriver)
	assert.Empty(t, cfg.StorageBucket)
	assert.False(t, cfg.StorageConfigured())
	assert.True(t, cfg.Namespaced)
	assert.Equal(t, "common", cfg.DefaultModel)
	assert.Equal(t, "default", cfg.DefaultChannel)
	assert.Equal(t, NamingTimestamp, cfg.Naming)
	assert.Equal(t, int64(32_000_000), cfg.MaxUploadSize)
	assert.Equal(t, int64(8_000_000), cfg.MultipartMemory)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.False(t, cfg.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORAGE_BUCKET", "media")
	t.Setenv("UPLOAD_NAMESPACED", "false")
	t.Setenv("UPLOAD_NAMING", "UUID")
	t.Setenv("UPLOAD_MAX_SIZE", "10 MiB")
	t.Setenv("UPLOAD_RATE_LIMIT", "30")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://admin.example.com, https://gz.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.StorageConfigured())
	assert.False(t, cfg.Namespaced)
	assert.Equal(t, NamingUUID, cfg.Naming)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadSize)
	assert.Equal(t, 30, cfg.UploadRateLimit)
	assert.Equal(t, []string{"https://admin.example.com", "https://gz.example.com"}, cfg.CORSAllowedOrigins)
}

func TestLoadMemoryDriverIsConfigured(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("STORAGE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.StorageConfigured())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"driver", "STORAGE_DRIVER", "ftp"},
		{"naming", "UPLOAD_NAMING", "sha1"},
		{"max size", "UPLOAD_MAX_SIZE", "lots"},
		{"memory", "UPLOAD_MEMORY", "-"},
		{"rate limit", "UPLOAD_RATE_LIMIT", "-1"},
		{"default model separator", "UPLOAD_DEFAULT_MODEL", "a/b"},
		{"default model dot", "UPLOAD_DEFAULT_MODEL", "."},
		{"default channel traversal", "UPLOAD_DEFAULT_CHANNEL", ".."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdir(t, t.TempDir())
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
