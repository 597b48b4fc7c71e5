package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frame-dx-server/internal/domain"
)

func TestNewManager_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	m, err := NewManager("")
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	cfg := m.GetConfig()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 256, cfg.Engine.MaxSymptoms)
	assert.False(t, cfg.Database.Enabled)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, time.Hour, cfg.Cache.DefaultTTL)
	assert.Equal(t, "sqlite", cfg.Feedback.Backend)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, m.IsDevelopment())
	assert.False(t, m.IsProduction())
}

func TestNewManager_FileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "framedx.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
environment: production
server:
  port: 9000
frames:
  file: /srv/frames.yaml
database:
  enabled: true
  host: db.internal
  database: dx
  username: dx
logging:
  level: warn
`), 0o600))

	t.Setenv("FRAMEDX_SERVER_PORT", "9100")
	t.Setenv("FRAMEDX_CACHE_REDIS_URL", "redis://cache:6379/1")

	m, err := NewManager(path)
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	cfg := m.GetConfig()
	assert.Equal(t, 9100, m.GetServerConfig().Port, "environment wins over the file")
	assert.Equal(t, "/srv/frames.yaml", cfg.Frames.File)
	assert.Equal(t, "redis://cache:6379/1", m.GetCacheConfig().RedisURL)
	assert.Equal(t, "db.internal", m.GetDatabaseConfig().Host)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.True(t, m.IsProduction())

	assert.Equal(t, "host=db.internal port=5432 user=dx password= dbname=dx sslmode=disable", m.GetDatabaseConnectionString())
	assert.Equal(t, "postgres://dx:@db.internal:5432/dx?sslmode=disable", m.GetDatabaseURL())
}

func TestNewManager_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))

	_, err := NewManager(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *domain.Config {
		return &domain.Config{
			Server:    domain.ServerConfig{Port: 8080, MaxBodyBytes: 1024},
			Engine:    domain.EngineConfig{MaxSymptoms: 10, MaxSymptomLength: 100},
			Cache:     domain.CacheConfig{Enabled: true, MaxItems: 10},
			Feedback:  domain.FeedbackConfig{Backend: "sqlite", SQLitePath: "fb.db"},
			RateLimit: domain.RateLimitConfig{Enabled: true, RequestsPerSecond: 1, Burst: 1},
			Logging:   domain.LoggingConfig{Level: "info", Format: "json"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*domain.Config)
		wantErr string
	}{
		{"valid", func(*domain.Config) {}, ""},
		{"bad port", func(c *domain.Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"no body limit", func(c *domain.Config) { c.Server.MaxBodyBytes = 0 }, "max_body_bytes"},
		{"no symptom limit", func(c *domain.Config) { c.Engine.MaxSymptoms = 0 }, "max_symptoms"},
		{"database without host", func(c *domain.Config) { c.Database = domain.DatabaseConfig{Enabled: true} }, "database host"},
		{"empty cache", func(c *domain.Config) { c.Cache.MaxItems = 0 }, "max_items"},
		{"unknown feedback backend", func(c *domain.Config) { c.Feedback.Backend = "mongo" }, "invalid feedback backend"},
		{"postgres feedback needs database", func(c *domain.Config) { c.Feedback.Backend = "postgres" }, "requires database.enabled"},
		{"feedback disabled", func(c *domain.Config) { c.Feedback.Backend = "none" }, ""},
		{"zero rate", func(c *domain.Config) { c.RateLimit.RequestsPerSecond = 0 }, "rate_limit"},
		{"bad level", func(c *domain.Config) { c.Logging.Level = "verbose" }, "invalid log level"},
		{"bad format", func(c *domain.Config) { c.Logging.Format = "xml" }, "invalid log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
