package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	cfg := New()

	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultWorkers, cfg.Scheduler.Workers)
	require.NotNil(t, cfg.Scheduler.MaxRetries)
	assert.Equal(t, DefaultMaxRetries, *cfg.Scheduler.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.Scheduler.RetryBackoff())
	assert.Equal(t, DefaultQuestionsDir, cfg.Questions.Dir)
	require.Len(t, cfg.Models, 1)
	assert.Equal(t, "mock", cfg.Models[0].Backend)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, New(), cfg)
}

func TestLoadMergesOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	content := `
server:
  port: 9090
scheduler:
  max_retries: 0
questions:
  dir: /data/questions
models:
  - name: gpt-test
    backend: copilot
    params:
      timeout: 30s
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, DefaultWorkers, cfg.Scheduler.Workers, "unset fields keep defaults")
	require.NotNil(t, cfg.Scheduler.MaxRetries)
	assert.Equal(t, 0, *cfg.Scheduler.MaxRetries, "explicit zero retries is honored, not defaulted")
	assert.Equal(t, "/data/questions", cfg.Questions.Dir)

	require.Len(t, cfg.Models, 1, "configured models replace the default mock entry")
	assert.Equal(t, "gpt-test", cfg.Models[0].Name)
	assert.Equal(t, "copilot", cfg.Models[0].Backend)
	assert.Equal(t, "30s", cfg.Models[0].Params["timeout"])
}

func TestLoadWalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileName), []byte("server:\n  port: 7777\n"), 0o644))

	cfg, err := Load(nested)
	require.NoError(t, err)
	assert.Equal(t, 7777, cfg.Server.Port)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scheduler:\n  workers: 16\n"), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Scheduler.Workers)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("server: [not a map"), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
}
