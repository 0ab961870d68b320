package property

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/simkernel/internal/core/element"
)

type stubEntity string

func (s stubEntity) ID() string { return string(s) }

type table map[string]bool

func (t table) Lookup(id string) (Identified, bool) {
	if t[id] {
		return stubEntity(id), true
	}
	return nil, false
}

func TestTypedCoercion(t *testing.T) {
	f := NewFloat(DefaultFlags)
	require.NoError(t, f.Set(int64(3)))
	v, ok := f.Get()
	require.True(t, ok)
	assert.Equal(t, 3.0, v)

	assert.ErrorIs(t, f.Set("heavy"), ErrTypeMismatch)
	assert.Equal(t, 3.0, f.Value(), "rejected write keeps old value")

	i := NewInt(DefaultFlags)
	require.NoError(t, i.Set(2.9))
	assert.Equal(t, int64(2), i.Value())

	b := NewBool(0)
	assert.ErrorIs(t, b.Set(1), ErrTypeMismatch)

	require.NoError(t, f.Set(nil))
	_, ok = f.Get()
	assert.False(t, ok)
}

func TestContainerKinds(t *testing.T) {
	l := NewList(DefaultFlags)
	require.NoError(t, l.Set([]float64{1, 2}))
	assert.ErrorIs(t, l.Set(element.Map{"a": 1}), ErrTypeMismatch)

	got, _ := l.Get()
	got.([]any)[0] = 9.0
	again, _ := l.Get()
	assert.Equal(t, element.FloatList(1, 2), again)

	s := NewSoft(0)
	require.NoError(t, s.Set(element.Map{"a": 1}))
	require.NoError(t, s.Set("x"))
	v, _ := s.Get()
	assert.Equal(t, "x", v)
}

func TestCopyIsIndependent(t *testing.T) {
	m := NewMap(Visible)
	require.NoError(t, m.Set(element.Map{"k": element.List{1}}))
	c := m.Copy()
	require.NoError(t, c.Set(element.Map{"k": "other"}))

	orig, _ := m.Get()
	assert.Equal(t, element.Map{"k": element.List{int64(1)}}, orig)
	assert.Equal(t, Visible, c.Flags())
}

func TestEntityRefResolvesLazily(t *testing.T) {
	world := table{}
	ref := NewEntityRef(world, DefaultFlags)

	require.NoError(t, ref.Set("7"))
	assert.Equal(t, "7", ref.ID())
	_, ok := ref.Get()
	assert.False(t, ok, "target does not exist yet")

	out := map[string]any{}
	ref.Add("planted_on", out)
	assert.Equal(t, "", out["planted_on"])

	world["7"] = true
	v, ok := ref.Get()
	require.True(t, ok)
	assert.Equal(t, element.Ref("7"), v)

	ref.Add("planted_on", out)
	ref.Add("id", out)
	assert.Equal(t, element.Ref("7"), out["planted_on"])
	assert.Equal(t, "7", out["id"])

	target, ok := ref.Target()
	require.True(t, ok)
	assert.Equal(t, "7", target.ID())

	delete(world, "7")
	_, ok = ref.Get()
	assert.False(t, ok)
}

func TestEntityRefSetForms(t *testing.T) {
	ref := NewEntityRef(nil, 0)
	require.NoError(t, ref.Set(element.Ref("a")))
	assert.Equal(t, "a", ref.ID())
	require.NoError(t, ref.Set(stubEntity("b")))
	assert.Equal(t, "b", ref.ID())
	require.NoError(t, ref.Set(""))
	assert.Equal(t, "", ref.ID())
	assert.ErrorIs(t, ref.Set(12), ErrTypeMismatch)
}
