package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, err)
	assert.Equal(t, Defaults.DB, cfg.DB)
	assert.Equal(t, Defaults.HTTPPort, cfg.HTTPPort)
}

func TestLoadDecodesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"db": "/tmp/custom.sqlite3",
		"http_port": 9090,
		"services": {"tado": {"kind": "tado", "secrets": {"token": "x"}}},
		"dashboard": {"primary_sensor": "tado::42::temperature"}
	}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.sqlite3", cfg.DB)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, "tado", cfg.Services["tado"].Kind)
	assert.Equal(t, "tado::42::temperature", cfg.Dashboard["primary_sensor"])
}

func TestLoadRejectsSchemaViolation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"http_port": "not-a-number"}`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverridesDBPath(t *testing.T) {
	t.Setenv("MYIOT_DB", "/tmp/env-override.sqlite3")
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/env-override.sqlite3", cfg.DB)
}
