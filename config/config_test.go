package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets the LMS_* variables for the test. godotenv does not
// override variables that are set, even to an empty value.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"LMS_DB_PATH", "LMS_LOG_LEVEL", "LMS_LOG_FORMAT"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "library.db", cfg.DBPath)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoadFromEnvFile(t *testing.T) {
	clearEnv(t)

	env := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(env, []byte("LMS_DB_PATH=data/lms.db\nLMS_LOG_LEVEL=debug\nLMS_LOG_FORMAT=json\n"), 0o644))

	cfg, err := Load(env)
	require.NoError(t, err)
	assert.Equal(t, "data/lms.db", cfg.DBPath)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("LMS_LOG_LEVEL", "loud")
	_, err := Load("")
	assert.Error(t, err)

	t.Setenv("LMS_LOG_LEVEL", "warn")
	t.Setenv("LMS_LOG_FORMAT", "xml")
	_, err = Load("")
	assert.Error(t, err)
}
