package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.HTTPPort)
	assert.Equal(t, 0, cfg.RPCPort)
	assert.Equal(t, "file:marketplace.db?cache=shared&mode=rwc", cfg.DatabaseURL)
	assert.Equal(t, "", cfg.NATSURL)
	assert.Equal(t, "https://npl-model-test-1.onrender.com/predict", cfg.PredictorURL)
	assert.Equal(t, 30*time.Second, cfg.PredictorTimeout)
	assert.Equal(t, "roles.json", cfg.RolesLogPath)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, 30*time.Second, cfg.WSPingInterval)
	assert.Equal(t, time.Minute, cfg.WSReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.WSWriteTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HTTP_PORT", "9100")
	t.Setenv("DATABASE_URL", "postgres://localhost/marketplace")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("WS_PING_INTERVAL_MS", "500")
	t.Setenv("RPC_PORT", "9101")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.HTTPPort)
	assert.Equal(t, "postgres://localhost/marketplace", cfg.DatabaseURL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	assert.Equal(t, 500*time.Millisecond, cfg.WSPingInterval)
	assert.Equal(t, 9101, cfg.RPCPort)
}

func TestLoadInvalidIntFallsBack(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HTTP_PORT", "not-a-port")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.HTTPPort)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marketplace.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_port: 7000\nroles_log_path: /tmp/roles.json\n"), 0o644))
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.HTTPPort)
	assert.Equal(t, "/tmp/roles.json", cfg.RolesLogPath)
}

func TestLoadMissingConfigFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.Error(t, err)
}
