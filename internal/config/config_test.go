package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/simkernel/internal/core/observability/log"
	"github.com/zeusync/simkernel/internal/core/router"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "simkernel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, router.OrphanCascade, cfg.Router.OrphanPolicy)
}

func TestFileThenEnvironment(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
router:
  orphan_policy: reparent
  basic_tick: 10s
  seed: 7
storage:
  path: /var/lib/simkernel/world.db
  persister:
    flush_interval: 2s
`)
	t.Setenv("SIMKERNEL_ROUTER_SEED", "99")
	t.Setenv("SIMKERNEL_LOG_ENCODING", "console")
	t.Setenv("SIMKERNEL_STORAGE_PERSISTER_QUEUE_SIZE", "64")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, log.LevelDebug, cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Encoding)
	assert.Equal(t, router.OrphanReparent, cfg.Router.OrphanPolicy)
	assert.Equal(t, 10*time.Second, cfg.Router.BasicTick)
	assert.Equal(t, uint64(99), cfg.Router.Seed)
	assert.Equal(t, 1000, cfg.Router.MaxImmediateIterations, "untouched keys keep defaults")
	assert.Equal(t, "/var/lib/simkernel/world.db", cfg.Storage.Path)
	assert.Equal(t, 2*time.Second, cfg.Storage.Persister.FlushInterval)
	assert.Equal(t, 64, cfg.Storage.Persister.QueueSize)
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "router: [not, a, map]"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "router:\n  orphan_policy: orphanage\n"))
	assert.ErrorIs(t, err, router.ErrInvalidConfig)

	t.Setenv("SIMKERNEL_ROUTER_MAX_IMMEDIATE_ITERATIONS", "0")
	_, err = Load("")
	assert.ErrorIs(t, err, router.ErrInvalidConfig)
}
