package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 8765, cfg.WebSocket.Port)
	require.Equal(t, "/amica/jsonrpc", cfg.WebSocket.Path)
	require.Equal(t, 64, cfg.WebSocket.MaxConnections)
	require.Equal(t, 5*time.Second, cfg.Hooks.DefaultTimeout)
	require.True(t, cfg.Hooks.Enabled)
	require.False(t, cfg.Auth.Enabled())

	require.NoError(t, Validate(cfg))
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "amica.yaml")
	data := `
server:
  port: 9090
websocket:
  max_connections: 8
hooks:
  default_timeout: 2s
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 8, cfg.WebSocket.MaxConnections)
	require.Equal(t, 2*time.Second, cfg.Hooks.DefaultTimeout)
	require.Equal(t, "debug", cfg.Logging.Level)
	// Untouched values keep their defaults.
	require.Equal(t, 8765, cfg.WebSocket.Port)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 0
	cfg.WebSocket.Path = "no-slash"
	cfg.Logging.Level = "loud"

	err := Validate(cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "server.port")
	require.Contains(t, err.Error(), "websocket.path")
	require.Contains(t, err.Error(), "logging.level")
}

func TestValidateSchedulerTriggers(t *testing.T) {
	cfg := Default()
	cfg.Scheduler.Triggers = []TriggerConfig{
		{Cron: "not a cron", Event: "on:model:load"},
		{Cron: "*/5 * * * *", Event: "noSuchEvent"},
	}

	err := Validate(cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "scheduler.triggers[0].cron")
	require.Contains(t, err.Error(), "scheduler.triggers[1].event")
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("AMICA_SERVER_PORT", "7070")

	// An explicitly named file that does not exist is an error.
	_, err := Load(LoadOptions{ConfigFile: filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, err)

	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.Server.Port)
}
