package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/simkernel/internal/core/element"
)

func TestEncodeIsDeterministic(t *testing.T) {
	a := element.Map{"mass": 3.5, "name": "oak", "pos": element.FloatList(1, 2, 3), "fruits": int64(2)}
	b := element.Map{"fruits": int64(2), "pos": element.FloatList(1, 2, 3), "name": "oak", "mass": 3.5}

	dataA, digestA, err := Encode(a)
	require.NoError(t, err)
	dataB, digestB, err := Encode(b)
	require.NoError(t, err)
	assert.Equal(t, dataA, dataB)
	assert.Equal(t, digestA, digestB)

	b["mass"] = 3.6
	_, digestC, err := Encode(b)
	require.NoError(t, err)
	assert.NotEqual(t, digestA, digestC)
}

func TestDecodeYieldsCanonicalElements(t *testing.T) {
	snap := element.Map{
		"fruits":      int64(7),
		"mass":        2.0,
		"planted_on":  element.Ref("42"),
		"orientation": element.FloatList(0, 0, 0, 1),
		"visible":     true,
	}
	data, _, err := Encode(snap)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got["fruits"])
	assert.Equal(t, 2.0, got["mass"])
	assert.Equal(t, map[string]any{element.RefKey: "42"}, got["planted_on"])
	assert.Equal(t, []any{0.0, 0.0, 0.0, 1.0}, got["orientation"])
	assert.Equal(t, true, got["visible"])

	_, err = Decode([]byte{0xc1})
	assert.Error(t, err)
}
