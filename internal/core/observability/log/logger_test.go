package log

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{
		"debug": LevelDebug, "INFO": LevelInfo, "": LevelInfo,
		"warning": LevelWarn, "error": LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)

	var l Level
	require.NoError(t, l.UnmarshalText([]byte("warn")))
	assert.Equal(t, LevelWarn, l)
}

func TestLoggerWritesJSONAndHonoursLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	l := New(LevelInfo, WithOutputPaths(path), WithoutSampling())

	child := l.With(String("component", "router"))
	child.Debug("hidden")
	child.Info("delivered", Int("count", 3), Error(errors.New("boom")))

	l.SetLevel(LevelDebug)
	assert.Equal(t, LevelDebug, child.GetLevel(), "children share the level")
	child.Debug("visible now")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"component":"router"`)
	assert.Contains(t, out, `"count":3`)
	assert.Contains(t, out, "visible now")
}

func TestNopLogger(t *testing.T) {
	l := NewNop()
	assert.NotPanics(t, func() {
		l.Info("nothing")
		l.With(Bool("x", true)).Error("still nothing")
	})
}
