package script

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/simkernel/internal/core/entity"
	"github.com/zeusync/simkernel/internal/core/observability/log"
	"github.com/zeusync/simkernel/internal/core/operation"
	"github.com/zeusync/simkernel/internal/core/property"
	"github.com/zeusync/simkernel/internal/core/router"
	"github.com/zeusync/simkernel/internal/core/types"
	"github.com/zeusync/simkernel/internal/rules"
)

const oakScript = `
register("oak", {
  touch = function(self, op)
    return true, {
      { type = "set", to = self.id, args = { mass = self.mass + 1 } },
      { type = "sound", future = 2, args = { { from = op.from } } },
    }
  end,
  look = function(self, op)
    return false
  end,
  nourish = function(self, op)
    self:set("nourishment", op.args[1].mass)
    return true
  end,
  chop = function(self, op)
    error("no axe")
  end,
  eat = function(self, op)
    return true, { { to = "x" } }
  end,
})
`

func newRegistry(t *testing.T) *types.Registry {
	t.Helper()
	reg, err := types.NewDefaultRegistry()
	require.NoError(t, err)
	_, err = reg.Add(types.NewNode("oak", []string{"tree"}, nil).WithScript("oak"))
	require.NoError(t, err)
	_, err = reg.AddType("sapling", []string{"oak"}, nil)
	require.NoError(t, err)
	return reg
}

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e := NewEngine(log.NewNop())
	require.NoError(t, e.LoadString("oak.lua", oakScript))
	return e
}

func newEntity(t *testing.T, mgr *property.Manager, id, typ string) *entity.Entity {
	t.Helper()
	ent := entity.New(id, 0, mgr)
	require.NoError(t, ent.SetType(typ))
	return ent
}

func TestHookForWalksAncestry(t *testing.T) {
	mgr := property.NewManager(newRegistry(t))
	eng := newEngine(t)

	assert.Equal(t, []string{"oak"}, eng.Classes())
	assert.NotNil(t, eng.HookFor(newEntity(t, mgr, "1", "oak")))
	assert.NotNil(t, eng.HookFor(newEntity(t, mgr, "2", "sapling")))
	assert.Nil(t, eng.HookFor(newEntity(t, mgr, "3", "tree")))
	assert.Nil(t, eng.HookFor(entity.New("4", 0, mgr)))
}

func TestTryHandleBuildsOperations(t *testing.T) {
	mgr := property.NewManager(newRegistry(t))
	ent := newEntity(t, mgr, "7", "oak")
	require.NoError(t, ent.Set("mass", 3.0))
	hook := newEngine(t).HookFor(ent)

	op := operation.New("touch", operation.From("9")).WithSerial(42)
	res, handled, err := hook.TryHandle("touch", op)
	require.NoError(t, err)
	require.True(t, handled)
	require.Len(t, res, 2)

	set := res[0]
	assert.Equal(t, "set", set.Type())
	assert.Equal(t, "7", set.From())
	assert.Equal(t, []string{"7"}, set.To())
	assert.Equal(t, int64(42), set.RefNo())
	mass, ok := set.Attr("mass")
	require.True(t, ok)
	assert.EqualValues(t, 4, mass)

	sound := res[1]
	future, ok := sound.Future()
	require.True(t, ok)
	assert.Equal(t, 2*time.Second, future)
	from, _ := sound.Attr("from")
	assert.Equal(t, "9", from)
}

func TestTryHandleDeclines(t *testing.T) {
	mgr := property.NewManager(newRegistry(t))
	hook := newEngine(t).HookFor(newEntity(t, mgr, "1", "oak"))

	res, handled, err := hook.TryHandle("look", operation.New("look"))
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Empty(t, res)

	_, handled, err = hook.TryHandle("move", operation.New("move"))
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestScriptWritesProperties(t *testing.T) {
	mgr := property.NewManager(newRegistry(t))
	mgr.Install("secret", func(property.Resolver) property.Property {
		return property.NewInt(property.Visible)
	})
	ent := newEntity(t, mgr, "1", "oak")
	ent.MarkClean()
	eng := newEngine(t)
	hook := eng.HookFor(ent)

	res, handled, err := hook.TryHandle("nourish", operation.New("nourish", operation.Arg("mass", 2.5)))
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Empty(t, res)
	assert.Equal(t, 2.5, ent.Props().Float("nourishment", 0))
	assert.True(t, ent.Dirty())

	require.NoError(t, eng.LoadString("secret.lua", `
register("oak", { nourish = function(self, op) self:set("secret", 1) return true end })
`))
	_, _, err = eng.HookFor(ent).TryHandle("nourish", operation.New("nourish"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), property.ErrNotWritable.Error())
	assert.False(t, ent.Props().Has("secret"))
}

func TestScriptErrors(t *testing.T) {
	mgr := property.NewManager(newRegistry(t))
	hook := newEngine(t).HookFor(newEntity(t, mgr, "1", "oak"))

	_, handled, err := hook.TryHandle("chop", operation.New("chop"))
	require.Error(t, err)
	assert.False(t, handled)
	assert.Contains(t, err.Error(), "no axe")

	_, _, err = hook.TryHandle("eat", operation.New("eat"))
	assert.ErrorIs(t, err, ErrBadResult)
}

func TestLoadErrors(t *testing.T) {
	eng := NewEngine(nil)
	assert.ErrorIs(t, eng.LoadString("bad.lua", "register("), ErrLoad)
	assert.ErrorIs(t, eng.LoadString("boom.lua", `error("boom")`), ErrLoad)
	assert.NoError(t, eng.LoadDir(filepath.Join(t.TempDir(), "missing")))
}

func TestLoadDirInNameOrder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.lua"), []byte(`register("second", {})`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.lua"), []byte(`register("first", {})`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(`not lua`), 0o600))

	eng := NewEngine(log.NewNop())
	require.NoError(t, eng.LoadDir(dir))
	assert.Equal(t, []string{"first", "second"}, eng.Classes())
}

func TestRouterBindsScriptsBeforeNatives(t *testing.T) {
	props := property.NewManager(newRegistry(t))
	r, err := router.New(router.DefaultConfig(), props, router.WithScriptBinder(newEngine(t)))
	require.NoError(t, err)
	require.NoError(t, rules.Install(r.Dispatcher()))

	world, err := r.CreateEntity("world", nil, nil)
	require.NoError(t, err)
	oak, err := r.CreateEntity("oak", map[string]any{"mass": 10.0, "fruits": int64(3)}, world)
	require.NoError(t, err)
	require.NotNil(t, oak.Script())

	r.Process(operation.New("touch", operation.To(oak.ID()), operation.From(world.ID())))

	assert.Equal(t, 11.0, oak.Props().Float("mass", 0))
	assert.Equal(t, int64(3), oak.Props().Int("fruits", 0), "native touch suppressed")
	assert.Equal(t, 1, r.Stats().Deferred)
}
