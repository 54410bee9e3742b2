package failure

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"graphload/pkg/logger"
)

// Subdir is the directory under the job directory holding one failures
// directory per run, named by the run timestamp.
const Subdir = "failures"

// reasonPrefix starts the comment line written before each run of records
// sharing a cause.
const reasonPrefix = "# "

// Tracker appends the raw records a source failed to load to that source's
// failure file, so a later incremental run can re-ingest them.
type Tracker struct {
	path       string
	file       *os.File
	writer     *bufio.Writer
	lastReason string
	count      int
	mu         sync.Mutex
	logger     logger.Logger
}

// NewTracker opens (or creates) the failure file for one source inside the
// run's failures directory.
func NewTracker(dir, name string, log logger.Logger) (*Tracker, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create failures directory: %w", err)
	}

	path := filepath.Join(dir, FileName(name))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open failure file: %w", err)
	}

	return &Tracker{
		path:   path,
		file:   file,
		writer: bufio.NewWriter(file),
		logger: log,
	}, nil
}

// Write records one failed raw record. A reason header is emitted whenever
// the cause changes from the previous record.
func (t *Tracker) Write(record, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if reason != t.lastReason {
		if _, err := t.writer.WriteString(reasonPrefix + reason + "\n"); err != nil {
			return fmt.Errorf("failed to write failure reason: %w", err)
		}
		t.lastReason = reason
	}
	if _, err := t.writer.WriteString(record + "\n"); err != nil {
		return fmt.Errorf("failed to write failure record: %w", err)
	}
	t.count++
	return nil
}

// Count returns the number of records written so far.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// Path returns the failure file location.
func (t *Tracker) Path() string {
	return t.path
}

// Close flushes and closes the failure file. An empty file is removed so
// clean sources leave nothing behind.
func (t *Tracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.writer.Flush(); err != nil {
		t.file.Close()
		return fmt.Errorf("failed to flush failure file: %w", err)
	}
	if err := t.file.Close(); err != nil {
		return fmt.Errorf("failed to close failure file: %w", err)
	}
	if t.count == 0 {
		if err := os.Remove(t.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove empty failure file: %w", err)
		}
		return nil
	}

	t.logger.InfoWithFields("Failure file written", map[string]interface{}{
		"path":    t.path,
		"records": t.count,
	})
	return nil
}

// Dir returns the failures directory for one run.
func Dir(jobDir, timestamp string) string {
	return filepath.Join(jobDir, Subdir, timestamp)
}

// DiscoverLatest finds the newest failures directory of a previous run.
// Directory names are run timestamps in fixed-width form, so the
// lexicographically last one is the most recent.
func DiscoverLatest(jobDir string) (string, bool, error) {
	root := filepath.Join(jobDir, Subdir)
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read failures directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return "", false, nil
	}

	sort.Strings(names)
	return filepath.Join(root, names[len(names)-1]), true, nil
}

// Files lists the per-source failure files in a failures directory, keyed
// by file name.
func Files(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read failures directory: %w", err)
	}

	files := make(map[string]string)
	for _, entry := range entries {
		if !entry.IsDir() {
			files[entry.Name()] = filepath.Join(dir, entry.Name())
		}
	}
	return files, nil
}

// ReadRecords returns the raw failed records from a failure file, skipping
// the reason headers.
func ReadRecords(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open failure file: %w", err)
	}
	defer file.Close()

	var records []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, reasonPrefix) {
			continue
		}
		records = append(records, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read failure file: %w", err)
	}
	return records, nil
}

// FileName returns the failure file name used for a tracker name, with path
// separators replaced so the name stays a single path element.
func FileName(name string) string {
	name = strings.ReplaceAll(name, string(os.PathSeparator), "_")
	return strings.ReplaceAll(name, "/", "_")
}
