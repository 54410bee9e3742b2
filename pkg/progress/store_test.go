package progress

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"

	"graphload/pkg/errors"
	"graphload/pkg/graph"
	"graphload/pkg/logger"
)

func newTestStore() *Store {
	return NewStore(afs.New(), logger.NewNopLogger())
}

// buildSnapshot returns the canonical two-source fixture: source a fully
// loaded at 100 bytes, source b with a loaded 50-byte item and an active
// item at offset 20, plus one edge source at offset 30.
func buildSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	snapshot := NewSnapshot()

	a := snapshot.GetOrCreate(graph.KindVertex, "a")
	itemA := NewItemProgress("a.csv", 1700000001, 100)
	require.NoError(t, a.BeginItem(itemA))
	require.NoError(t, itemA.Advance(100))
	a.MarkLoaded(false)

	b := snapshot.GetOrCreate(graph.KindVertex, "b")
	itemB1 := NewItemProgress("b1.csv", 1700000002, 50)
	require.NoError(t, b.BeginItem(itemB1))
	require.NoError(t, itemB1.Advance(50))
	b.MarkLoaded(false)
	itemB2 := NewItemProgress("b2.jsonl", 1700000003, 80)
	require.NoError(t, b.BeginItem(itemB2))
	require.NoError(t, itemB2.Advance(20))

	e := snapshot.GetOrCreate(graph.KindEdge, "created")
	itemE := NewItemProgress("created.jsonl", 1700000004, 90)
	require.NoError(t, e.BeginItem(itemE))
	require.NoError(t, itemE.Advance(30))

	return snapshot
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	dir := "mem://localhost/graphload/roundtrip"

	snapshot := buildSnapshot(t)
	require.NoError(t, store.Persist(ctx, snapshot, dir, "20240101120000"))

	path, ok, err := store.DiscoverLatest(ctx, dir)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(path, "progress 20240101120000"),
		"checkpoint file name must be the prefix, a space, and the timestamp")

	restored, err := store.Load(ctx, path)
	require.NoError(t, err)

	assert.Equal(t, int64(170), restored.TotalConsumed(graph.KindVertex))
	assert.Equal(t, int64(30), restored.TotalConsumed(graph.KindEdge))

	bEntry := restored.Get(graph.KindVertex, "b")
	require.NotNil(t, bEntry)
	require.Len(t, bEntry.LoadedItems, 1)
	assert.Equal(t, "b1.csv", bEntry.LoadedItems[0].Name)
	assert.True(t, bEntry.LoadedItems[0].Loaded)
	require.NotNil(t, bEntry.LoadingItem)
	assert.Equal(t, "b2.jsonl", bEntry.LoadingItem.Name)
	assert.Equal(t, int64(20), bEntry.LoadingItem.Offset)
	assert.False(t, bEntry.LoadingItem.Loaded)

	aEntry := restored.Get(graph.KindVertex, "a")
	require.NotNil(t, aEntry)
	require.Len(t, aEntry.LoadedItems, 1)
	assert.Nil(t, aEntry.LoadingItem)
}

func TestStoreRoundTripOnDisk(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	dir := t.TempDir()

	require.NoError(t, store.Persist(ctx, buildSnapshot(t), dir, "20240101120000"))

	// The move must leave exactly the final file behind, no temp artifacts.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "progress 20240101120000", entries[0].Name())

	path, ok, err := store.DiscoverLatest(ctx, dir)
	require.NoError(t, err)
	require.True(t, ok)

	restored, err := store.Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, int64(170), restored.TotalConsumed(graph.KindVertex))
}

func TestStoreFreshStartFallback(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	t.Run("missing directory", func(t *testing.T) {
		_, ok, err := store.DiscoverLatest(ctx, "mem://localhost/graphload/nowhere")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("directory without checkpoints", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "failures.log"), []byte("y"), 0644))

		_, ok, err := store.DiscoverLatest(ctx, dir)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("fresh snapshot totals are zero", func(t *testing.T) {
		snapshot := NewSnapshot()
		assert.Equal(t, int64(0), snapshot.TotalConsumed(graph.KindVertex))
		assert.Equal(t, int64(0), snapshot.TotalConsumed(graph.KindEdge))
	})
}

func TestStoreLatestWins(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		timestamps []string // persisted newest first to vary listing order
		want       string
	}{
		{
			name:       "same day",
			timestamps: []string{"20240101130005", "20240101120000"},
			want:       "progress 20240101130005",
		},
		{
			name:       "day boundary",
			timestamps: []string{"20240102000000", "20240101235959"},
			want:       "progress 20240102000000",
		},
		{
			name:       "month boundary",
			timestamps: []string{"20240201000000", "20240131235959"},
			want:       "progress 20240201000000",
		},
		{
			name:       "year boundary",
			timestamps: []string{"20240101000000", "20231231235959"},
			want:       "progress 20240101000000",
		},
		{
			name: "many checkpoints",
			timestamps: []string{
				"20240301080000",
				"20231111111111",
				"20240229235959",
				"20240131010101",
			},
			want: "progress 20240301080000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore()
			dir := "mem://localhost/graphload/latest/" + strings.ReplaceAll(tt.name, " ", "_")

			for _, ts := range tt.timestamps {
				snapshot := NewSnapshot()
				entry := snapshot.GetOrCreate(graph.KindVertex, "src")
				item := NewItemProgress("src.csv", 1, 10)
				require.NoError(t, entry.BeginItem(item))
				require.NoError(t, item.Advance(5))
				require.NoError(t, store.Persist(ctx, snapshot, dir, ts))
			}

			path, ok, err := store.DiscoverLatest(ctx, dir)
			require.NoError(t, err)
			require.True(t, ok)
			assert.True(t, strings.HasSuffix(path, tt.want),
				"got %q, want suffix %q", path, tt.want)
		})
	}
}

func TestStoreLoadCorrupt(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	dir := t.TempDir()

	path := filepath.Join(dir, "progress 20240101120000")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	snapshot, err := store.Load(ctx, path)
	require.Error(t, err)
	assert.Nil(t, snapshot)
	assert.True(t, errors.IsType(err, errors.ErrorTypeCheckpointCorrupt),
		"malformed checkpoint must surface as corrupt, never as an empty snapshot")

	t.Run("unreadable path is corrupt too", func(t *testing.T) {
		_, err := store.Load(ctx, filepath.Join(dir, "progress 19990101000000"))
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeCheckpointCorrupt))
	})
}

func TestStorePersistOverwritesSameTimestamp(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	dir := t.TempDir()

	first := NewSnapshot()
	entry := first.GetOrCreate(graph.KindVertex, "src")
	item := NewItemProgress("src.csv", 1, 100)
	require.NoError(t, entry.BeginItem(item))
	require.NoError(t, item.Advance(10))
	require.NoError(t, store.Persist(ctx, first, dir, "20240101120000"))

	require.NoError(t, item.Advance(60))
	require.NoError(t, store.Persist(ctx, first, dir, "20240101120000"))

	path, ok, err := store.DiscoverLatest(ctx, dir)
	require.NoError(t, err)
	require.True(t, ok)

	restored, err := store.Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, int64(70), restored.TotalConsumed(graph.KindVertex),
		"re-persisting the same run must replace the earlier file")
}
