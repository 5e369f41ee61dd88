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

	assert.Equal(t, 5000, cfg.Server.HTTPPort)
	assert.Equal(t, "gpt-4o-mini", cfg.Agent.DefaultModel)
	assert.Equal(t, "./conversations", cfg.Agent.ConversationDir)
	assert.Equal(t, "memory", cfg.Registry.Backend)
	assert.True(t, cfg.Browser.Headless)
	assert.NoError(t, cfg.Validate())
}

func TestLoader_FromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  http_port: 8088
agent:
  default_model: gpt-4o
  max_steps: 10
registry:
  backend: redis
  addr: redis:6379
pool:
  max_workers: 4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 8088, cfg.Server.HTTPPort)
	assert.Equal(t, "gpt-4o", cfg.Agent.DefaultModel)
	assert.Equal(t, 10, cfg.Agent.MaxSteps)
	assert.Equal(t, "redis", cfg.Registry.Backend)
	assert.Equal(t, "redis:6379", cfg.Registry.Addr)
	assert.Equal(t, 4, cfg.Pool.MaxWorkers)

	// Untouched fields keep their defaults.
	assert.Equal(t, 9090, cfg.Server.MetricsPort)
	assert.NoError(t, cfg.Validate())
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/nonexistent/config.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.Server.HTTPPort)
}

func TestLoader_EnvOverrides(t *testing.T) {
	t.Setenv("BROWSERUSE_SERVER_HTTP_PORT", "7070")
	t.Setenv("BROWSERUSE_AGENT_DEFAULT_MODEL", "gpt-4o")
	t.Setenv("BROWSERUSE_AGENT_TIMEOUT", "90s")
	t.Setenv("BROWSERUSE_BROWSER_HEADLESS", "false")
	t.Setenv("BROWSERUSE_SERVER_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.HTTPPort)
	assert.Equal(t, "gpt-4o", cfg.Agent.DefaultModel)
	assert.Equal(t, 90*time.Second, cfg.Agent.Timeout)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSAllowedOrigins)
}

func TestLoader_PortEnvWins(t *testing.T) {
	t.Setenv("BROWSERUSE_SERVER_HTTP_PORT", "7070")
	t.Setenv("PORT", "6001")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, 6001, cfg.Server.HTTPPort)
}

func TestLoader_InvalidPortEnv(t *testing.T) {
	t.Setenv("PORT", "not-a-port")

	_, err := NewLoader().Load()
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults valid", func(c *Config) {}, false},
		{"bad port", func(c *Config) { c.Server.HTTPPort = 0 }, true},
		{"bad max steps", func(c *Config) { c.Agent.MaxSteps = 0 }, true},
		{"bad workers", func(c *Config) { c.Pool.MaxWorkers = -1 }, true},
		{"unknown backend", func(c *Config) { c.Registry.Backend = "etcd" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
