package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLiteConfig(t *testing.T) {
	cfg := DefaultLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Empty(t, cfg.FramesFile)
	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, 256, cfg.MaxSymptoms)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadLiteConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("FRAMEDX_DATA_DIR", "/tmp/test-framedx")
	t.Setenv("FRAMEDX_FRAMES_FILE", "/etc/framedx/frames.yaml")
	t.Setenv("FRAMEDX_CACHE_MAX_ITEMS", "500")
	t.Setenv("FRAMEDX_CACHE_TTL", "12h")
	t.Setenv("FRAMEDX_MAX_SYMPTOMS", "32")
	t.Setenv("FRAMEDX_LOG_LEVEL", "debug")
	t.Setenv("FRAMEDX_LOG_FORMAT", "text")

	cfg := LoadLiteConfig()

	assert.Equal(t, "/tmp/test-framedx", cfg.DataDir)
	assert.Equal(t, "/etc/framedx/frames.yaml", cfg.FramesFile)
	assert.Equal(t, 500, cfg.CacheMaxItems)
	assert.Equal(t, 12*time.Hour, cfg.CacheTTL)
	assert.Equal(t, 32, cfg.MaxSymptoms)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoadLiteConfig_InvalidValuesKeepDefaults(t *testing.T) {
	t.Setenv("FRAMEDX_CACHE_MAX_ITEMS", "-5")
	t.Setenv("FRAMEDX_CACHE_TTL", "soon")
	t.Setenv("FRAMEDX_MAX_SYMPTOMS", "lots")

	cfg := LoadLiteConfig()

	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, 256, cfg.MaxSymptoms)
}

func TestLiteConfig_Paths(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/home/user/.framedx"}

	assert.Equal(t, "/home/user/.framedx/feedback.db", cfg.FeedbackDBPath())
	assert.Equal(t, "/home/user/.framedx/exports", cfg.ExportDir())
}

func TestLiteConfig_EnsureDataDir(t *testing.T) {
	cfg := &LiteConfig{DataDir: filepath.Join(t.TempDir(), "framedx")}

	require.NoError(t, cfg.EnsureDataDir())

	assert.DirExists(t, cfg.DataDir)
	assert.DirExists(t, cfg.ExportDir())
}
