package property

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/simkernel/internal/core/element"
	"github.com/zeusync/simkernel/internal/core/types"
)

func newPlantStore(t *testing.T) (*Manager, *Store) {
	t.Helper()
	reg, err := types.NewDefaultRegistry()
	require.NoError(t, err)
	mgr := NewManager(reg)
	s, err := mgr.NewStore(reg.Get("tree"))
	require.NoError(t, err)
	return mgr, s
}

func TestStoreFallsBackToClass(t *testing.T) {
	_, s := newPlantStore(t)

	v, ok := s.Get("sizeAdult")
	require.True(t, ok)
	assert.Equal(t, 8.0, v, "tree overrides plant default")

	v, ok = s.Get("status")
	require.True(t, ok)
	assert.Equal(t, 1.0, v)

	_, ok = s.Get("nonexistent")
	assert.False(t, ok)
	assert.Empty(t, s.OwnNames())
}

func TestClassPrefersNearerDefaultsAcrossParents(t *testing.T) {
	reg, err := types.NewDefaultRegistry()
	require.NoError(t, err)
	_, err = reg.AddType("shrub", []string{"plant"}, map[string]any{"mass": 2.0})
	require.NoError(t, err)
	_, err = reg.AddType("bonsai", []string{"shrub"}, map[string]any{"mass": 0.5})
	require.NoError(t, err)
	_, err = reg.AddType("potted", []string{"thing", "bonsai"}, nil)
	require.NoError(t, err)

	c, err := NewManager(reg).ClassFor(reg.Get("potted"))
	require.NoError(t, err)
	p, ok := c.Prototype("mass")
	require.True(t, ok)
	v, _ := p.Get()
	assert.Equal(t, 0.5, v, "bonsai is nearer than game_entity")
}

func TestStoreCopyOnWrite(t *testing.T) {
	mgr, s := newPlantStore(t)
	other, err := mgr.NewStore(mgr.Registry().Get("tree"))
	require.NoError(t, err)

	require.NoError(t, s.Set("mass", 5))
	assert.Equal(t, 5.0, s.Float("mass", -1))
	assert.Equal(t, 0.0, other.Float("mass", -1), "class prototype untouched")
	assert.Equal(t, []string{"mass"}, s.OwnNames())

	assert.ErrorIs(t, s.Set("mass", "lots"), ErrTypeMismatch)
	assert.Equal(t, 5.0, s.Float("mass", -1))

	p, ok := s.Modify("fruits")
	require.True(t, ok)
	require.NoError(t, p.Set(3))
	assert.Equal(t, int64(3), s.Int("fruits", 0))
	assert.Equal(t, int64(0), other.Int("fruits", -1))

	_, ok = s.Modify("unknown")
	assert.False(t, ok)
}

func TestStoreCreatesUnknownNamesByKind(t *testing.T) {
	_, s := newPlantStore(t)
	require.NoError(t, s.Set("owner_note", "mine"))
	require.NoError(t, s.Set("bag", element.List{"a"}))
	require.NoError(t, s.Set("ratio", 0.5))

	assert.Equal(t, "mine", s.String("owner_note", ""))
	assert.ErrorIs(t, s.Set("bag", 3), ErrTypeMismatch)
	p, _ := s.Property("ratio")
	assert.Equal(t, element.KindFloat, p.Kind())
}

func TestSnapshotMask(t *testing.T) {
	mgr, s := newPlantStore(t)
	mgr.Bind(table{"ground": true})

	require.NoError(t, s.Set("name", "oak"))
	require.NoError(t, s.Set("planted_on", "ground"))

	visible := map[string]any{}
	s.Snapshot(visible, Visible)
	assert.Equal(t, "oak", visible["name"])
	assert.Equal(t, element.Ref("ground"), visible["planted_on"])
	assert.NotContains(t, visible, "speed", "speed is not visible")

	all := map[string]any{}
	s.Snapshot(all, 0)
	assert.Contains(t, all, "speed")

	out := map[string]any{}
	assert.True(t, s.AddToSnapshot("name", out))
	assert.False(t, s.AddToSnapshot("missing", out))
}

func TestSetFromScriptRespectsFlag(t *testing.T) {
	mgr, s := newPlantStore(t)
	mgr.Install("secret", func(Resolver) Property { return NewString(Persistent) })
	require.NoError(t, s.Set("secret", "x"))

	assert.ErrorIs(t, s.SetFromScript("secret", "y"), ErrNotWritable)
	require.NoError(t, s.SetFromScript("name", "y"))
}
