package entity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/simkernel/internal/core/element"
	"github.com/zeusync/simkernel/internal/core/property"
	"github.com/zeusync/simkernel/internal/core/types"
)

func newManager(t *testing.T) *property.Manager {
	t.Helper()
	reg, err := types.NewDefaultRegistry()
	require.NoError(t, err)
	return property.NewManager(reg)
}

func newTyped(t *testing.T, mgr *property.Manager, id, typ string) *Entity {
	t.Helper()
	e := New(id, 0, mgr)
	require.NoError(t, e.SetType(typ))
	return e
}

func TestSetTypeOnce(t *testing.T) {
	mgr := newManager(t)
	e := New("1", 1, mgr)

	assert.ErrorIs(t, e.SetType("squigglymuff"), ErrUnknownType)
	assert.Nil(t, e.Type())

	require.NoError(t, e.SetType("plant"))
	assert.ErrorIs(t, e.SetType("tree"), ErrTypeImmutable)
	assert.Equal(t, "plant", e.TypeName())
	assert.Equal(t, 4.0, e.Props().Float("sizeAdult", 0))
}

func TestReparentRejectsCycles(t *testing.T) {
	mgr := newManager(t)
	world := newTyped(t, mgr, "0", "world")
	box := newTyped(t, mgr, "1", "thing")
	inner := newTyped(t, mgr, "2", "thing")

	require.NoError(t, box.Reparent(world, Vector3{}))
	require.NoError(t, inner.Reparent(box, Vector3{X: 1}))

	assert.ErrorIs(t, box.Reparent(box, Vector3{}), ErrCycle)
	assert.ErrorIs(t, box.Reparent(inner, Vector3{}), ErrCycle)
	assert.ErrorIs(t, world.Reparent(inner, Vector3{}), ErrCycle)

	assert.Same(t, world, box.Parent(), "failed move leaves location unchanged")
	assert.True(t, world.Contains(inner))

	require.NoError(t, inner.Reparent(world, Vector3{Y: 2}))
	assert.Equal(t, 0, box.NumChildren())
	assert.Equal(t, 2, world.NumChildren())
}

func TestDescribe(t *testing.T) {
	mgr := newManager(t)
	var nilEntity *Entity
	assert.NotPanics(t, func() { _ = nilEntity.Describe() })

	e := New("9", 9, mgr)
	assert.Equal(t, "untyped (9)", e.Describe())

	require.NoError(t, e.SetType("tree"))
	require.NoError(t, e.Set("name", "oak"))
	assert.Equal(t, "tree 'oak' (9)", e.Describe())
}

func TestReachability(t *testing.T) {
	mgr := newManager(t)
	world := newTyped(t, mgr, "0", "world")
	tree := newTyped(t, mgr, "1", "tree")
	hero := newTyped(t, mgr, "2", "character")
	stranger := newTyped(t, mgr, "3", "character")
	pocket := newTyped(t, mgr, "4", "thing")

	require.NoError(t, tree.Reparent(world, Vector3{X: 10}))
	tree.SetBBox(BBox{Low: Vector3{-0.5, 0, -0.5}, High: Vector3{0.5, 0, 0.5}})
	require.NoError(t, hero.Reparent(world, Vector3{X: 8}))
	require.NoError(t, pocket.Reparent(hero, Vector3{}))

	assert.True(t, hero.IsReachableForOtherEntity(hero, nil, 0))
	assert.True(t, pocket.IsReachableForOtherEntity(hero, nil, 0), "contained by reacher")
	assert.True(t, hero.IsReachableForOtherEntity(pocket, nil, 0), "reacher inside target")
	assert.False(t, tree.IsReachableForOtherEntity(stranger, nil, 100), "no common ancestor")

	// distance 2, bbox radius ~0.707, reach 1
	assert.False(t, tree.IsReachableForOtherEntity(hero, nil, 0))
	assert.True(t, tree.IsReachableForOtherEntity(hero, nil, 0.5))

	far := Vector3{X: 1}
	assert.False(t, tree.IsReachableForOtherEntity(hero, &far, 1.5))
	near := Vector3{X: -1}
	assert.True(t, tree.IsReachableForOtherEntity(hero, &near, 0))
}

func TestReachabilityRotatedFrame(t *testing.T) {
	mgr := newManager(t)
	world := newTyped(t, mgr, "0", "world")
	cart := newTyped(t, mgr, "1", "thing")
	apple := newTyped(t, mgr, "2", "fruit")
	hero := newTyped(t, mgr, "3", "character")

	require.NoError(t, cart.Reparent(world, Vector3{}))
	cart.SetOrientation(AxisAngle(Vector3{Z: 1}, math.Pi/2))
	require.NoError(t, apple.Reparent(cart, Vector3{X: 5}))
	require.NoError(t, hero.Reparent(world, Vector3{Y: 5.5}))

	// a quarter turn maps the apple's +x offset onto world +y
	assert.True(t, apple.IsReachableForOtherEntity(hero, nil, 0))
	cart.SetOrientation(Identity())
	assert.False(t, apple.IsReachableForOtherEntity(hero, nil, 0))
}

func TestSetRoutesGeometry(t *testing.T) {
	mgr := newManager(t)
	e := newTyped(t, mgr, "1", "thing")
	e.MarkClean()

	require.NoError(t, e.Set("pos", element.FloatList(1, 2, 3)))
	assert.Equal(t, Vector3{1, 2, 3}, e.Location().Pos)
	assert.True(t, e.Dirty())

	assert.ErrorIs(t, e.Set("pos", "north"), property.ErrTypeMismatch)
	assert.ErrorIs(t, e.Set("id", "2"), ErrReservedAttr)

	require.NoError(t, e.Set("mass", 3))
	v, ok := e.Get("mass")
	require.True(t, ok)
	assert.Equal(t, 3.0, v)
}

func TestSnapshotRoundTripsIntoFreshEntity(t *testing.T) {
	mgr := newManager(t)
	world := newTyped(t, mgr, "0", "world")
	tree := newTyped(t, mgr, "1", "tree")
	require.NoError(t, tree.Reparent(world, Vector3{X: 3}))
	tree.SetBBox(BBox{Low: Vector3{-1, 0, -1}, High: Vector3{1, 4, 1}})
	require.NoError(t, tree.Set("mass", 12.5))
	require.NoError(t, tree.Set("planted_on", "0"))

	snap := tree.Snapshot(property.Persistent)
	assert.Equal(t, "1", snap["id"])
	assert.Equal(t, "0", snap["loc"])
	assert.Equal(t, "tree", SnapshotType(snap))
	assert.Equal(t, "", snap["planted_on"], "resolver unbound, reference dangles")

	copyOf := newTyped(t, mgr, "1", SnapshotType(snap))
	require.NoError(t, copyOf.ApplySnapshot(snap))
	assert.Equal(t, Vector3{X: 3}, copyOf.Location().Pos)
	assert.Equal(t, tree.Location().BBox, copyOf.Location().BBox)
	assert.Equal(t, 12.5, copyOf.Props().Float("mass", 0))
}
