// Package load orchestrates a load job: it resumes checkpoint state, runs
// one worker per input source through the submitter pool, captures failed
// records, and persists the run's progress on shutdown.
package load

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"

	"graphload/pkg/client"
	"graphload/pkg/config"
	"graphload/pkg/failure"
	"graphload/pkg/graph"
	"graphload/pkg/logger"
	"graphload/pkg/progress"
	"graphload/pkg/summary"
)

// Context carries the state shared by every source worker in one run: the
// run timestamp, the resumed snapshot, the snapshot being built, the
// per-source failure trackers, the run summary, and the stop flag.
type Context struct {
	cfg       *config.Config
	timestamp string
	jobDir    string

	oldProgress *progress.Snapshot
	newProgress *progress.Snapshot
	store       *progress.Store

	client  *client.Client
	summary *summary.Summary

	trackers   map[string]*failure.Tracker
	trackersMu sync.Mutex

	stopped atomic.Bool
	logger  logger.Logger
}

// NewContext prepares the shared run state. In incremental mode the latest
// checkpoint in the job directory is discovered and loaded; a corrupt
// checkpoint is fatal here, before any worker starts. A missing checkpoint
// just means an empty resumed snapshot.
func NewContext(
	ctx context.Context,
	cfg *config.Config,
	store *progress.Store,
	cl *client.Client,
	clock Clock,
	log logger.Logger,
) (*Context, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	c := &Context{
		cfg:         cfg,
		timestamp:   clock.Now().Format(progress.TimestampFormat),
		jobDir:      cfg.JobDir(),
		oldProgress: progress.NewSnapshot(),
		newProgress: progress.NewSnapshot(),
		store:       store,
		client:      cl,
		summary:     summary.New(),
		trackers:    make(map[string]*failure.Tracker),
		logger:      log,
	}

	if cfg.Load.Incremental {
		path, found, err := store.DiscoverLatest(ctx, c.jobDir)
		if err != nil {
			return nil, err
		}
		if found {
			snapshot, err := store.Load(ctx, path)
			if err != nil {
				return nil, err
			}
			c.oldProgress = snapshot
		} else {
			log.InfoWithFields("No previous checkpoint, starting fresh", map[string]interface{}{
				"job_dir": c.jobDir,
			})
		}
	}

	return c, nil
}

// Timestamp returns the run timestamp used to name this run's checkpoint
// and failures directory.
func (c *Context) Timestamp() string {
	return c.timestamp
}

// JobDir returns the directory holding this job's checkpoint and failure
// state.
func (c *Context) JobDir() string {
	return c.jobDir
}

// Summary returns the run totals accumulated so far.
func (c *Context) Summary() *summary.Summary {
	return c.summary
}

// OldProgress returns the resumed snapshot. It is read-only for the run.
func (c *Context) OldProgress() *progress.Snapshot {
	return c.oldProgress
}

// NewProgress returns the snapshot this run is building.
func (c *Context) NewProgress() *progress.Snapshot {
	return c.newProgress
}

// FailureTracker returns the failure tracker for one source, creating it on
// first use. Creation happens exactly once per key even when concurrent
// workers race on the first lookup; the whole lookup-or-create runs under
// one lock.
func (c *Context) FailureTracker(kind graph.Kind, key progress.SourceKey) (*failure.Tracker, error) {
	registryKey := kind.String() + "/" + string(key)

	c.trackersMu.Lock()
	defer c.trackersMu.Unlock()

	if tracker, ok := c.trackers[registryKey]; ok {
		return tracker, nil
	}

	dir := failure.Dir(c.jobDir, c.timestamp)
	tracker, err := failure.NewTracker(dir, string(key), c.logger)
	if err != nil {
		return nil, err
	}

	c.logger.InfoWithFields("Created failure tracker for source", map[string]interface{}{
		"kind":   kind.String(),
		"source": string(key),
		"path":   tracker.Path(),
	})

	c.trackers[registryKey] = tracker
	return tracker, nil
}

// Stop requests a cooperative shutdown. Workers poll Stopped between
// batches and wind down without submitting further work.
func (c *Context) Stop() {
	c.stopped.Store(true)
}

// Stopped reports whether a stop has been requested.
func (c *Context) Stopped() bool {
	return c.stopped.Load()
}

// Close flushes the run state once all workers have joined: every failure
// tracker is closed (errors aggregated), the new snapshot is persisted
// under the run timestamp, and the client handle is released. A checkpoint
// write failure is logged and swallowed so a completed load is not failed
// retroactively; dry runs skip persistence entirely.
func (c *Context) Close(ctx context.Context) error {
	var result *multierror.Error

	c.trackersMu.Lock()
	for _, tracker := range c.trackers {
		if err := tracker.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	c.trackersMu.Unlock()

	if c.cfg.Load.DryRun {
		c.logger.Debug("Dry run, skipping checkpoint persistence")
	} else if err := c.store.Persist(ctx, c.newProgress, c.jobDir, c.timestamp); err != nil {
		logger.LogCheckpoint("persist", progress.FileName(c.timestamp), err)
		c.logger.WithError(err).Error("Failed to persist checkpoint")
	}

	if c.client != nil {
		c.client.Close()
	}

	return result.ErrorOrNil()
}
