package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  host: 127.0.0.1
jwt:
  secret: test-secret-test-secret-test-123456
`))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, "utf8mb4", cfg.Database.Charset)
	assert.Equal(t, 24, cfg.JWT.ExpireHours)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 100, cfg.Security.RateLimit)
	assert.Equal(t, 30, cfg.Security.WriteRateLimit)
	assert.Equal(t, 3600, cfg.Security.LockSeconds)
	assert.Equal(t, 8, cfg.Security.PasswordMinLength)

	assert.Same(t, cfg, Get())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("JWT_SECRET", "env-secret-env-secret-env-secret-12")

	cfg, err := Load(writeConfig(t, `
database:
  host: localhost
jwt:
  secret: file-secret-file-secret-file-secret
`))
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "env-secret-env-secret-env-secret-12", cfg.JWT.Secret)
}

func TestReleaseModeRequiresSecret(t *testing.T) {
	_, err := Load(writeConfig(t, `
server:
  mode: release
`))
	assert.Error(t, err)
}

func TestReleaseModeRejectsShortSecret(t *testing.T) {
	_, err := Load(writeConfig(t, `
server:
  mode: release
jwt:
  secret: short
`))
	assert.Error(t, err)
}

func TestDebugModeGeneratesSecret(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  mode: debug
`))
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.JWT.Secret)
	assert.GreaterOrEqual(t, len(cfg.JWT.Secret), 32)
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{
		Host: "localhost", Port: 3306,
		Username: "root", Password: "pass",
		Database: "users", Charset: "utf8mb4",
	}
	assert.Equal(t,
		"root:pass@tcp(localhost:3306)/users?charset=utf8mb4&parseTime=True&loc=Local",
		d.DSN())
}
