package load

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"

	"graphload/pkg/config"
	"graphload/pkg/failure"
	"graphload/pkg/graph"
	"graphload/pkg/logger"
	"graphload/pkg/progress"
)

func newTestContext(t *testing.T, cfg *config.Config) (*Context, *progress.Store) {
	t.Helper()
	store := progress.NewStore(afs.New(), logger.NewNopLogger())
	lctx, err := NewContext(context.Background(), cfg, store, nil,
		stubClock{now: time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)}, logger.NewNopLogger())
	require.NoError(t, err)
	return lctx, store
}

func TestFailureTrackerSharedAcrossWorkers(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Load.WorkDir = t.TempDir()

	lctx, _ := newTestContext(t, cfg)

	const workers = 16
	trackers := make([]*failure.Tracker, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tracker, err := lctx.FailureTracker(graph.KindVertex, "person-people.csv")
			assert.NoError(t, err)
			trackers[i] = tracker
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		assert.Same(t, trackers[0], trackers[i],
			"concurrent lookups of one source must share a single tracker")
	}

	edgeTracker, err := lctx.FailureTracker(graph.KindEdge, "person-people.csv")
	require.NoError(t, err)
	assert.NotSame(t, trackers[0], edgeTracker,
		"the registry keys trackers by category and source")

	require.NoError(t, lctx.Close(context.Background()))

	// Nothing was written, so close removes the empty failure files.
	files, err := failure.Files(failure.Dir(cfg.JobDir(), lctx.Timestamp()))
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestContextClose(t *testing.T) {
	t.Run("persists the run checkpoint", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Load.WorkDir = t.TempDir()

		lctx, store := newTestContext(t, cfg)
		assert.Equal(t, "20240506100000", lctx.Timestamp())

		entry := lctx.NewProgress().GetOrCreate(graph.KindVertex, "person-people.csv")
		ip := progress.NewItemProgress("people.csv", 42, 100)
		require.NoError(t, entry.BeginItem(ip))
		require.NoError(t, ip.Advance(60))

		require.NoError(t, lctx.Close(context.Background()))

		path, found, err := store.DiscoverLatest(context.Background(), cfg.JobDir())
		require.NoError(t, err)
		require.True(t, found)

		snapshot, err := store.Load(context.Background(), path)
		require.NoError(t, err)
		assert.Equal(t, int64(60), snapshot.TotalConsumed(graph.KindVertex),
			"the partial offset is the next run's resume point")
	})

	t.Run("dry run skips persistence", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Load.WorkDir = t.TempDir()
		cfg.Load.DryRun = true

		lctx, store := newTestContext(t, cfg)
		lctx.NewProgress().GetOrCreate(graph.KindVertex, "person-people.csv")
		require.NoError(t, lctx.Close(context.Background()))

		_, found, err := store.DiscoverLatest(context.Background(), cfg.JobDir())
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestContextStop(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Load.WorkDir = t.TempDir()

	lctx, _ := newTestContext(t, cfg)
	assert.False(t, lctx.Stopped())

	lctx.Stop()
	assert.True(t, lctx.Stopped())

	lctx.Stop()
	assert.True(t, lctx.Stopped(), "stop is idempotent")
}
