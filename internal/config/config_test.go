// ABOUTME: Tests for configuration loading, env expansion, and validation
// ABOUTME: Uses temp files to exercise the YAML parsing path end to end

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const minimalConfig = `
server:
  http_addr: ":8080"
database:
  path: askai.db
signalr:
  endpoint: https://askai.example.signalr.net
  access_key: secret
`

func TestLoadMinimal(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, "askai.db", cfg.Database.Path)
	assert.Equal(t, "https://askai.example.signalr.net", cfg.SignalR.Endpoint)

	// Defaults
	assert.Equal(t, DefaultHub, cfg.SignalR.Hub)
	assert.Equal(t, DefaultTokenTTL, cfg.SignalR.TokenTTL)
	assert.Equal(t, DefaultWorkerInterval, cfg.Worker.Interval)
	assert.Equal(t, DefaultCooldown, cfg.Submissions.Cooldown)
	assert.Equal(t, DefaultCompletionTimeout, cfg.Completion.Timeout)
}

func TestLoadFull(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  http_addr: ":9090"
database:
  path: /var/lib/askai/askai.db
signalr:
  endpoint: https://askai.example.signalr.net
  hub: events
  access_key: secret
  token_ttl: 30m
moderation:
  endpoint: https://safety.example.com
  api_key: modkey
completion:
  endpoint: https://openai.example.com
  api_key: aikey
  model: gpt-4o-mini
  timeout: 45s
worker:
  enabled: true
  interval: 30s
submissions:
  cooldown: 10s
admin:
  moderator_key_hash: "$2a$10$abcdefghijklmnopqrstuv"
logging:
  level: debug
  format: json
`))
	require.NoError(t, err)

	assert.Equal(t, "events", cfg.SignalR.Hub)
	assert.Equal(t, 30*time.Minute, cfg.SignalR.TokenTTL)
	assert.Equal(t, 45*time.Second, cfg.Completion.Timeout)
	assert.Equal(t, "gpt-4o-mini", cfg.Completion.Model)
	assert.True(t, cfg.Worker.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Worker.Interval)
	assert.Equal(t, 10*time.Second, cfg.Submissions.Cooldown)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.NotEmpty(t, cfg.Admin.ModeratorKeyHash)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("ASKAI_TEST_ACCESS_KEY", "from-env")

	cfg, err := Load(writeConfig(t, `
server:
  http_addr: ":8080"
database:
  path: askai.db
signalr:
  endpoint: https://askai.example.signalr.net
  access_key: ${ASKAI_TEST_ACCESS_KEY}
`))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.SignalR.AccessKey)
}

func TestLoadUnsetEnvVarBecomesEmpty(t *testing.T) {
	_, err := Load(writeConfig(t, `
server:
  http_addr: ":8080"
database:
  path: askai.db
signalr:
  endpoint: https://askai.example.signalr.net
  access_key: ${ASKAI_TEST_DEFINITELY_UNSET}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signalr.access_key")
}

func TestLoadInvalidDuration(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+`
worker:
  interval: soon
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "worker.interval")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:   ServerConfig{HTTPAddr: ":8080"},
			Database: DatabaseConfig{Path: "askai.db"},
			SignalR:  SignalRConfig{Endpoint: "https://x", AccessKey: "k"},
		}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("missing http_addr", func(t *testing.T) {
		cfg := base()
		cfg.Server.HTTPAddr = ""
		assert.ErrorContains(t, cfg.Validate(), "server.http_addr")
	})

	t.Run("tailscale listener replaces http_addr", func(t *testing.T) {
		cfg := base()
		cfg.Server.HTTPAddr = ""
		cfg.Tailscale.Enabled = true
		cfg.Tailscale.Hostname = "askai"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("tailscale needs hostname", func(t *testing.T) {
		cfg := base()
		cfg.Tailscale.Enabled = true
		assert.ErrorContains(t, cfg.Validate(), "tailscale.hostname")
	})

	t.Run("missing database path", func(t *testing.T) {
		cfg := base()
		cfg.Database.Path = ""
		assert.ErrorContains(t, cfg.Validate(), "database.path")
	})

	t.Run("missing signalr endpoint", func(t *testing.T) {
		cfg := base()
		cfg.SignalR.Endpoint = ""
		assert.ErrorContains(t, cfg.Validate(), "signalr.endpoint")
	})

	t.Run("worker needs completion endpoint", func(t *testing.T) {
		cfg := base()
		cfg.Worker.Enabled = true
		assert.ErrorContains(t, cfg.Validate(), "completion.endpoint")
	})
}
