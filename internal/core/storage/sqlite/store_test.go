package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/simkernel/internal/core/element"
	"github.com/zeusync/simkernel/internal/core/storage"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func record(id string, intID int64, parent string, mass float64) storage.Record {
	snap := element.Map{"id": id, "parents": element.List{"tree"}, "mass": mass}
	if parent != "" {
		snap["loc"] = parent
	}
	return storage.Record{ID: id, IntID: intID, Type: "tree", Parent: parent, Snapshot: snap}
}

func TestSaveLoadAndSkipUnchanged(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, filepath.Join(t.TempDir(), "world.db"))

	require.NoError(t, s.Save(ctx, record("a", 1, "", 3)))
	require.NoError(t, s.Save(ctx, record("a", 1, "", 3)))
	require.NoError(t, s.Save(ctx, record("a", 1, "", 4)))

	stats := s.Statistics()
	assert.Equal(t, uint64(2), stats.Writes)
	assert.Equal(t, uint64(1), stats.Skipped)
	assert.Equal(t, 1, stats.Records)

	got, err := s.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.IntID)
	assert.Equal(t, "tree", got.Type)
	assert.Equal(t, 4.0, got.Snapshot["mass"])

	_, err = s.Load(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeleteAndList(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, filepath.Join(t.TempDir(), "world.db"))

	require.NoError(t, s.Save(ctx, record("c", 3, "a", 1)))
	require.NoError(t, s.Save(ctx, record("a", 1, "", 1)))
	require.NoError(t, s.Save(ctx, record("b", 2, "a", 1)))
	require.NoError(t, s.Delete(ctx, "b"))
	require.NoError(t, s.Delete(ctx, "never-stored"))

	recs, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "a", recs[0].ID)
	assert.Equal(t, "c", recs[1].ID)
	assert.Equal(t, "a", recs[1].Parent)

	require.NoError(t, s.Save(ctx, record("b", 2, "a", 1)), "re-save after delete")
	assert.Equal(t, uint64(4), s.Statistics().Writes)
}

func TestReopenKeepsDigests(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "world.db")

	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Save(ctx, record("a", 1, "", 3)))
	require.NoError(t, first.Close())

	second := openTestStore(t, path)
	require.NoError(t, second.Save(ctx, record("a", 1, "", 3)))
	assert.Equal(t, uint64(0), second.Statistics().Writes)
	assert.Equal(t, uint64(1), second.Statistics().Skipped)
}

func TestRejectsBadInput(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)

	s := openTestStore(t, filepath.Join(t.TempDir(), "world.db"))
	assert.Error(t, s.Save(context.Background(), storage.Record{}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Save(ctx, record("a", 1, "", 1)), context.Canceled)
}
