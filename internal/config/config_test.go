package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileFallsBackToDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logger:
  level: debug
  json: true
log:
  file_size: 4096
cleaner:
  wake_interval: 250ms
  max_retries: 7
  utilization_threshold: 0.25
debug:
  latch_table: true
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.True(t, cfg.Logger.JSON)
	assert.Equal(t, uint32(4096), cfg.Log.FileSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Cleaner.WakeInterval)
	assert.Equal(t, 7, cfg.Cleaner.MaxRetries)
	assert.Equal(t, 0.25, cfg.Cleaner.UtilizationThreshold)
	assert.True(t, cfg.Debug.LatchTable)
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log: [not a map"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLogLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", LoggerConfig{Level: "debug"}.LogLevel().String())
	assert.Equal(t, "INFO", LoggerConfig{Level: "unknown"}.LogLevel().String())
}
