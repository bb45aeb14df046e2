package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/brokenfulcrum/elixr-task-service/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoad_Defaults 无配置文件时使用默认值
func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "", cfg.Bus.WebhookURL)
	assert.Equal(t, 10, cfg.Bus.TimeoutSeconds)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
}

// TestLoad_File 从配置文件加载
func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
env: production
server:
  port: 9090
database:
  driver: sqlite
  path: /tmp/test.db
bus:
  webhook_url: http://localhost:8081/events
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/test.db", cfg.Database.Path)
	assert.Equal(t, "http://localhost:8081/events", cfg.Bus.WebhookURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	// 文件未覆盖的键保持默认值
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
}

// TestLoad_EnvOverride 环境变量覆盖默认值
func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("APP_SERVER_PORT", "7070")
	t.Setenv("APP_DATABASE_DRIVER", "sqlite")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

// TestValidate 配置校验
func TestValidate(t *testing.T) {
	cfg := &config.Config{
		Server:   config.ServerConfig{Port: 8080},
		Database: config.DatabaseConfig{Driver: "sqlite"},
	}
	assert.NoError(t, cfg.Validate())

	cfg.Database.Driver = "mysql"
	assert.Error(t, cfg.Validate())

	cfg.Database.Driver = "postgres"
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())

	cfg.Server.Port = 70000
	assert.Error(t, cfg.Validate())
}
