package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileUsesEnvironment(t *testing.T) {
	t.Setenv("API_KEY", "secret")
	t.Setenv("STORAGE_TYPE", "memory")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Generation.APIKey)
	assert.Equal(t, "memory", cfg.Storage.Type)
	assert.Equal(t, "Kore", cfg.Generation.SpeechVoice)
	assert.Equal(t, 30*time.Minute, cfg.Speech.CacheTTL)
}

func TestLoadConfig_FileWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("storage:\n  type: redis\n  redis:\n    endpoint: redis:6379\nlogging:\n  level: debug\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.Storage.Type)
	assert.Equal(t, "redis:6379", cfg.Storage.Redis.Endpoint)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "data/legal-ai.db", cfg.Storage.SQLite.Path)
}
