package userconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.BackendURL)
	assert.Empty(t, cfg.Username)
}

func TestRememberLogin(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	require.NoError(t, RememberLogin("http://localhost:4000", "ops"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:4000", cfg.BackendURL)
	assert.Equal(t, "ops", cfg.Username)

	info, err := os.Stat(filepath.Join(home, ".config", "crypgo", "admin.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestLoadCorruptFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path, err := GetConfigPath()
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err = Load()
	assert.ErrorContains(t, err, "failed to parse user config file")
}
