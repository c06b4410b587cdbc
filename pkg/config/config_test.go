package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, time.Duration(0), cfg.Ingest.HTTPTimeout)
	assert.Equal(t, int64(2<<30), cfg.Ingest.MaxDecompressedBytes)
	assert.Equal(t, 90, cfg.Output.JPEGQuality)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mrivolume.yaml")
	content := `
ingest:
  httpTimeout: 30s
  maxDecompressedBytes: 1024
output:
  extractSlices: true
  jpegQuality: 75
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Ingest.HTTPTimeout)
	assert.Equal(t, int64(1024), cfg.Ingest.MaxDecompressedBytes)
	assert.True(t, cfg.Output.ExtractSlices)
	assert.Equal(t, 75, cfg.Output.JPEGQuality)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched keys keep their defaults.
	assert.Equal(t, "slices", cfg.Output.SlicesDir)
	assert.Equal(t, "logfmt", cfg.Logging.Format)
}

func TestLoadConfigInvalid(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("ingest: [unclosed"), 0644))
	_, err := LoadConfig(bad)
	assert.ErrorContains(t, err, "error parsing config file")

	level := filepath.Join(dir, "level.yaml")
	require.NoError(t, os.WriteFile(level, []byte("logging:\n  level: loud\n"), 0644))
	_, err = LoadConfig(level)
	assert.ErrorContains(t, err, "logging.level")
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cfg.yaml")
	require.NoError(t, CreateDefaultConfigFile(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output.JPEGQuality = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Ingest.HTTPTimeout = -time.Second
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Logging.Format = "xml"
	assert.Error(t, cfg.Validate())
}
