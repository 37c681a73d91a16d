package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moments.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
db_path: /var/lib/moments/moments.db
workers: 8
target_words: 90
soft_cap_plays: 25
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/var/lib/moments/moments.db", cfg.DBPath)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 90, cfg.TargetWords)
	assert.Equal(t, 25, cfg.SoftCapPlays)
	// Untouched keys keep their defaults.
	assert.Equal(t, "leagues", cfg.LeagueDir)
	assert.Equal(t, 20000, cfg.RenderTimeoutMS)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moments.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 8\nlog_level: warn\n"), 0o644))

	t.Setenv("MOMENTS_WORKERS", "2")
	t.Setenv("MOMENTS_DB_PATH", "env.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "env.db", cfg.DBPath)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadRejectsBadValues(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "workers.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("workers: 0\n"), 0o644))
	_, err := Load(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers must be positive")

	bad = filepath.Join(dir, "retries.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("render_retries: -1\n"), 0o644))
	_, err = Load(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "render_retries must be non-negative")
}
