package operation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/simkernel/internal/core/element"
)

func TestBuildersDoNotMutateOriginal(t *testing.T) {
	orig := New("tick", To("a"), From("b"), Arg("mass", 5.0))

	moved := orig.WithTo("c")
	assert.Equal(t, []string{"a"}, orig.To())
	assert.Equal(t, []string{"c"}, moved.To())

	args := orig.Args()
	args[0]["mass"] = 99.0
	v, ok := orig.Attr("mass")
	require.True(t, ok)
	assert.Equal(t, 5.0, v)

	to := orig.To()
	to[0] = "z"
	assert.Equal(t, []string{"a"}, orig.To())
}

func TestArgsAreCopiedOnConstruction(t *testing.T) {
	rec := element.Map{"pos": element.FloatList(1, 2, 3)}
	op := New("move", Args(rec))
	rec["pos"].([]any)[0] = 42.0

	got, ok := op.Arg(0)
	require.True(t, ok)
	assert.Equal(t, element.FloatList(1, 2, 3), got["pos"])

	_, ok = op.Arg(1)
	assert.False(t, ok)
}

func TestScheduling(t *testing.T) {
	now := 10 * time.Second

	op := New("tick")
	assert.False(t, op.IsDeferred())
	assert.Equal(t, now, op.DueAt(now))

	delayed := op.With(FutureIn(30 * time.Second))
	assert.True(t, delayed.IsDeferred())
	assert.Equal(t, 40*time.Second, delayed.DueAt(now))

	pinned := delayed.ScheduledAt(time.Minute)
	_, hasFuture := pinned.Future()
	assert.False(t, hasFuture)
	assert.Equal(t, time.Minute, pinned.DueAt(now))

	assert.False(t, pinned.Immediate().IsDeferred())
	assert.True(t, pinned.IsDeferred())
}

func TestMalformedWrapsSentinel(t *testing.T) {
	err := Malformed(New("nourish"), "no argument")
	assert.True(t, errors.Is(err, ErrMalformed))
	assert.Contains(t, err.Error(), "nourish")
}

func TestVectorOfType(t *testing.T) {
	var res Vector
	res.Add(New("set"), New("tick"), New("set"))
	assert.Equal(t, 3, res.Len())
	assert.Len(t, res.OfType("set"), 2)
	assert.Empty(t, res.OfType("move"))
}
