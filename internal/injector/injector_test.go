package injector

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/simkernel/internal/config"
	"github.com/zeusync/simkernel/internal/core/operation"
	"github.com/zeusync/simkernel/internal/core/storage"
)

func TestInitializeWithoutPersistence(t *testing.T) {
	app, cleanup, err := InitializeApp(context.Background(), config.Default())
	require.NoError(t, err)
	defer cleanup()

	assert.Nil(t, app.Store)
	assert.Nil(t, app.Persister)
	assert.True(t, app.Types.Has("plant"))
	assert.NoError(t, app.Tracing(context.Background()))
}

func TestInitializeWiresRulesScriptsAndStorage(t *testing.T) {
	dir := t.TempDir()
	ruleset := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(ruleset, []byte(`
types:
  - name: oak
    parents: [tree]
    script: oak
`), 0o600))
	scripts := filepath.Join(dir, "scripts")
	require.NoError(t, os.Mkdir(scripts, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(scripts, "oak.lua"), []byte(`
register("oak", { touch = function(self, op) return true end })
`), 0o600))

	cfg := config.Default()
	cfg.Rules = config.RulesConfig{Ruleset: ruleset, Scripts: scripts}
	cfg.Storage.Path = filepath.Join(dir, "world.db")
	cfg.Storage.Persister.FlushInterval = time.Second

	app, cleanup, err := InitializeApp(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()
	require.NotNil(t, app.Store)
	require.NotNil(t, app.Persister)
	assert.Equal(t, []string{"oak"}, app.Scripts.Classes())

	world, err := app.Router.CreateEntity("world", nil, nil)
	require.NoError(t, err)
	oak, err := app.Router.CreateEntity("oak", nil, world)
	require.NoError(t, err)
	assert.NotNil(t, oak.Script())

	app.Router.Tick(time.Second)
	app.Persister.Drain(context.Background())
	_, err = app.Store.Load(context.Background(), oak.ID())
	require.NoError(t, err)

	app.Router.Process(operation.New("delete", operation.To(oak.ID()), operation.Arg("id", oak.ID())))
	app.Persister.Drain(context.Background())
	_, err = app.Store.Load(context.Background(), oak.ID())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
