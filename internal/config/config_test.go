package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:8080", cfg.Addr)
	require.Equal(t, "w2w.db", cfg.DBPath)
	require.Equal(t, "https://phimapi.com", cfg.API.BaseURL)
	require.Equal(t, 15*time.Second, cfg.API.Timeout)
	require.Equal(t, 2, cfg.API.RetryMax)
	require.Equal(t, 256, cfg.Cache.Size)
	require.Equal(t, 30*time.Minute, cfg.Screens.IdleTTL)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "w2w.yaml")
	yaml := "addr: 0.0.0.0:9090\napi:\n  retry_max: 5\n  timeout: 3s\ncache:\n  ttl: 1m\n"
	require.NoError(t, os.WriteFile(file, []byte(yaml), 0o600))
	t.Setenv("W2W_DB_PATH", "/tmp/other.db")
	t.Setenv("W2W_API_BASE_URL", "http://localhost:1234")

	cfg, err := Load(file)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:9090", cfg.Addr)
	require.Equal(t, "/tmp/other.db", cfg.DBPath)
	require.Equal(t, "http://localhost:1234", cfg.API.BaseURL)
	require.Equal(t, 5, cfg.API.RetryMax)
	require.Equal(t, 3*time.Second, cfg.API.Timeout)
	require.Equal(t, time.Minute, cfg.Cache.TTL)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("W2W_API_RETRY_MAX", "-1")

	_, err := Load("")
	require.ErrorContains(t, err, "retry_max")
}
