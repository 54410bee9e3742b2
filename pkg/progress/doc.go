// Package progress tracks how far a load job has read each input source and
// persists that state as checkpoint files so an interrupted job can resume.
//
// The model has three layers:
//   - ItemProgress: a byte cursor into one input item (a file) and whether
//     the item was fully consumed
//   - InputProgress: the consumed items of one source plus at most one
//     in-flight item
//   - Snapshot: per-category (vertex, edge) tables keyed by source
//
// A run works with two snapshots: the one resumed from the latest checkpoint
// of a previous run (read-only) and the one being built. The Store writes
// snapshots to "progress <timestamp>" files in the job directory, writing a
// temporary file first so a crash never leaves a half-written checkpoint in
// place, and discovers the newest file by name: the timestamp format is
// fixed-width, so lexicographic order is chronological order.
package progress
