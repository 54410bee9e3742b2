package progress

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/viant/afs"

	"graphload/pkg/errors"
	"graphload/pkg/graph"
	"graphload/pkg/logger"
)

const (
	// FilePrefix starts every checkpoint file name in the job directory.
	FilePrefix = "progress"
	// TimestampFormat is fixed-width and zero-padded so the lexicographic
	// order of file names equals their chronological order.
	TimestampFormat = "20060102150405"

	fileSeparator = " "
	tempSuffix    = ".tmp"
)

// FileName returns the checkpoint file name for a run timestamp, e.g.
// "progress 20240101120000".
func FileName(timestamp string) string {
	return FilePrefix + fileSeparator + timestamp
}

// Store persists and discovers checkpoint snapshots in a job directory.
// The filesystem is injected so tests run against mem:// URLs.
type Store struct {
	fs     afs.Service
	logger logger.Logger
}

// NewStore creates a checkpoint store over the given filesystem.
func NewStore(fs afs.Service, log logger.Logger) *Store {
	return &Store{
		fs:     fs,
		logger: log,
	}
}

// Persist serializes the snapshot to <dir>/progress <timestamp>, writing a
// temporary file first and moving it into place. Failures surface as
// checkpoint write errors and are never retried here.
func (s *Store) Persist(ctx context.Context, snapshot *Snapshot, dir, timestamp string) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeCheckpointWrite,
			"failed to encode checkpoint")
	}

	path := joinPath(dir, FileName(timestamp))
	tempPath := path + tempSuffix

	if err := s.fs.Upload(ctx, tempPath, 0644, bytes.NewReader(data)); err != nil {
		return errors.Wrap(err, errors.ErrorTypeCheckpointWrite,
			"failed to write temporary checkpoint file")
	}
	if err := s.fs.Move(ctx, tempPath, path); err != nil {
		_ = s.fs.Delete(ctx, tempPath)
		return errors.Wrap(err, errors.ErrorTypeCheckpointWrite,
			"failed to replace checkpoint file")
	}

	s.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"path":     path,
		"vertices": snapshot.TotalConsumed(graph.KindVertex),
		"edges":    snapshot.TotalConsumed(graph.KindEdge),
	})

	return nil
}

// DiscoverLatest finds the most recent checkpoint file in dir. A missing
// directory or one without checkpoint files reports absent; the caller
// falls back to an empty snapshot.
func (s *Store) DiscoverLatest(ctx context.Context, dir string) (string, bool, error) {
	exists, err := s.fs.Exists(ctx, dir)
	if err != nil {
		return "", false, errors.Wrap(err, errors.ErrorTypeCheckpointCorrupt,
			"failed to probe job directory")
	}
	if !exists {
		return "", false, nil
	}

	objects, err := s.fs.List(ctx, dir)
	if err != nil {
		return "", false, errors.Wrap(err, errors.ErrorTypeCheckpointCorrupt,
			"failed to list job directory")
	}

	var names []string
	for _, object := range objects {
		if object.IsDir() || !strings.HasPrefix(object.Name(), FilePrefix) {
			continue
		}
		if strings.HasSuffix(object.Name(), tempSuffix) {
			continue
		}
		names = append(names, object.Name())
	}
	if len(names) == 0 {
		return "", false, nil
	}

	// Names embed the fixed-width timestamp, so the lexicographically last
	// one is the newest regardless of listing order.
	sort.Strings(names)
	latest := joinPath(dir, names[len(names)-1])

	s.logger.DebugWithFields("Checkpoint discovered", map[string]interface{}{
		"path":       latest,
		"candidates": len(names),
	})

	return latest, true, nil
}

// Load reads and deserializes a checkpoint file. Unreadable or malformed
// content is a corrupt checkpoint, fatal to the resuming caller.
func (s *Store) Load(ctx context.Context, path string) (*Snapshot, error) {
	data, err := s.fs.DownloadWithURL(ctx, path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeCheckpointCorrupt,
			"failed to read checkpoint file")
	}

	snapshot := NewSnapshot()
	if err := json.Unmarshal(data, snapshot); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeCheckpointCorrupt,
			"failed to decode checkpoint file")
	}

	s.logger.InfoWithFields("Checkpoint loaded", map[string]interface{}{
		"path":     path,
		"vertices": snapshot.TotalConsumed(graph.KindVertex),
		"edges":    snapshot.TotalConsumed(graph.KindEdge),
	})

	return snapshot, nil
}

// joinPath appends a file name to a directory that may be a plain path or
// a URL such as mem://localhost/job.
func joinPath(dir, name string) string {
	return strings.TrimRight(dir, "/") + "/" + name
}
