package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
environment: prod
db:
  driver: postgres
  host: db.internal
  port: 6543
  name: tools
similarity:
  url: http://similarity:8001/
  timeout: 5s
invocation:
  timeout: 90s
providers:
  openai_base_url: https://proxy.example/openai/
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Environment)
	assert.False(t, cfg.IsDev())
	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, 6543, cfg.DB.Port)
	assert.Contains(t, cfg.DB.DSN(), "host=db.internal port=6543")
	assert.Equal(t, "http://similarity:8001", cfg.Similarity.URL)
	assert.Equal(t, 5*time.Second, cfg.Similarity.Timeout)
	assert.Equal(t, 90*time.Second, cfg.Invocation.Timeout)
	assert.Equal(t, "https://proxy.example/openai", cfg.Providers.OpenAIBaseURL)
	assert.Equal(t, "https://api.anthropic.com", cfg.Providers.AnthropicBaseURL)
	assert.Equal(t, "You are a helpful assistant.", cfg.Playground.SystemPrompt)
}

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 60*time.Second, cfg.Invocation.Timeout)
	assert.Equal(t, 15*time.Second, cfg.Similarity.Timeout)
	assert.True(t, cfg.IsDev())
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MCCARTHY_DB_DRIVER", "memory")
	t.Setenv("MCCARTHY_SIMILARITY_CLIENT_ID", "svc")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.DB.Driver)
	assert.Equal(t, "svc", cfg.Similarity.ClientID)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
