package progress

import (
	"encoding/json"
	"fmt"
	"sync"

	"graphload/pkg/errors"
	"graphload/pkg/graph"
)

// SourceKey identifies one configured input source. Keys are derived from
// the mapping descriptor (label plus backing input) and stay stable across
// runs so resumed progress can be matched back to its source.
type SourceKey string

// ItemProgress tracks the read cursor into one input item. An item is one
// file backing a source; offsets and totals are byte positions.
type ItemProgress struct {
	Name     string `json:"name"`
	Modified int64  `json:"modified"`
	Total    int64  `json:"total"`
	Offset   int64  `json:"offset"`
	Loaded   bool   `json:"loaded"`
}

// NewItemProgress creates the progress record for an item whose size is
// already known from discovery.
func NewItemProgress(name string, modified, total int64) *ItemProgress {
	return &ItemProgress{
		Name:     name,
		Modified: modified,
		Total:    total,
	}
}

// Advance moves the cursor forward by delta bytes. Offsets are strictly
// monotonic: a negative delta or one that would push the cursor past the
// item's total size is rejected and the cursor stays unchanged.
func (p *ItemProgress) Advance(delta int64) error {
	if delta < 0 {
		return fmt.Errorf("progress: negative advance %d for item %q", delta, p.Name)
	}
	if p.Offset+delta > p.Total {
		return fmt.Errorf("progress: advance %d past total %d for item %q (offset %d)",
			delta, p.Total, p.Name, p.Offset)
	}
	p.Offset += delta
	return nil
}

// Matches reports whether other refers to the same underlying input item.
// Identity is name plus modification time plus size, the same triple the
// resume logic keys on.
func (p *ItemProgress) Matches(other *ItemProgress) bool {
	return p.Name == other.Name &&
		p.Modified == other.Modified &&
		p.Total == other.Total
}

// InputProgress aggregates progress for one input source: the items already
// fully consumed plus at most one item currently being read.
//
// Entries are confined to their owning source worker. All mutating methods
// assume a single writer for the lifetime of the source; only the snapshot
// table that holds entries is locked.
type InputProgress struct {
	LoadedItems []*ItemProgress `json:"loadedItems"`
	LoadingItem *ItemProgress   `json:"loadingItem,omitempty"`
}

func NewInputProgress() *InputProgress {
	return &InputProgress{
		LoadedItems: make([]*ItemProgress, 0),
	}
}

// BeginItem attaches the item the source is about to read. At most one item
// is in flight per source; the previous item must have been marked loaded
// (or force-marked) first.
func (p *InputProgress) BeginItem(item *ItemProgress) error {
	if p.LoadingItem != nil {
		return fmt.Errorf("progress: item %q still loading, cannot begin %q",
			p.LoadingItem.Name, item.Name)
	}
	p.LoadingItem = item
	return nil
}

// MarkLoaded moves the in-flight item into the loaded list. With markAll the
// move happens regardless of the item's current offset; otherwise only an
// item read through to its total size moves. Without an in-flight item the
// call is a no-op, which is what makes force-marking idempotent.
func (p *InputProgress) MarkLoaded(markAll bool) {
	if p.LoadingItem == nil {
		return
	}
	if !markAll && p.LoadingItem.Offset != p.LoadingItem.Total {
		return
	}
	p.LoadingItem.Loaded = true
	p.LoadedItems = append(p.LoadedItems, p.LoadingItem)
	p.LoadingItem = nil
}

// ConsumedCount returns the bytes consumed from this source: every loaded
// item's offset plus the in-flight item's offset.
func (p *InputProgress) ConsumedCount() int64 {
	var total int64
	for _, item := range p.LoadedItems {
		total += item.Offset
	}
	if p.LoadingItem != nil {
		total += p.LoadingItem.Offset
	}
	return total
}

// MatchLoaded reports whether an equivalent item was fully loaded in the
// run this progress was recorded from.
func (p *InputProgress) MatchLoaded(item *ItemProgress) bool {
	for _, loaded := range p.LoadedItems {
		if loaded.Matches(item) {
			return true
		}
	}
	return false
}

// MatchLoading returns the prior in-flight progress for an equivalent item,
// or nil. Callers seek to the returned offset and continue; the returned
// record belongs to the resumed snapshot and must not be mutated.
func (p *InputProgress) MatchLoading(item *ItemProgress) *ItemProgress {
	if p.LoadingItem != nil && p.LoadingItem.Matches(item) {
		return p.LoadingItem
	}
	return nil
}

// Snapshot is the full checkpoint state for one run: a table of source
// progress per element category. Two snapshots exist per job, the resumed
// one (read-only) and the one being built.
type Snapshot struct {
	mu     sync.Mutex
	tables map[graph.Kind]map[SourceKey]*InputProgress
}

// NewSnapshot returns an empty snapshot with both category tables present.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		tables: map[graph.Kind]map[SourceKey]*InputProgress{
			graph.KindVertex: {},
			graph.KindEdge:   {},
		},
	}
}

// Kind returns the live per-category table. Intended for iteration once
// workers have quiesced (reporting, persistence, tests); workers use
// GetOrCreate instead.
func (s *Snapshot) Kind(k graph.Kind) map[SourceKey]*InputProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tables[k]
}

// GetOrCreate returns the progress entry for the source, inserting a fresh
// empty one on first access. Safe for concurrent calls from workers owning
// different keys; the returned entry itself is single-writer.
func (s *Snapshot) GetOrCreate(k graph.Kind, key SourceKey) *InputProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	table := s.tables[k]
	if entry, ok := table[key]; ok {
		return entry
	}
	entry := NewInputProgress()
	table[key] = entry
	return entry
}

// Get returns the progress entry for the source, or nil when the source
// never reported progress.
func (s *Snapshot) Get(k graph.Kind, key SourceKey) *InputProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tables[k][key]
}

// TotalConsumed sums the consumed counts of every source in the category.
func (s *Snapshot) TotalConsumed(k graph.Kind) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, entry := range s.tables[k] {
		total += entry.ConsumedCount()
	}
	return total
}

// MarkLoaded marks the source's in-flight item loaded. Marking a source that
// was never registered is a caller bug and fails with an invalid source
// error.
func (s *Snapshot) MarkLoaded(k graph.Kind, key SourceKey, markAll bool) error {
	s.mu.Lock()
	entry := s.tables[k][key]
	s.mu.Unlock()
	if entry == nil {
		return errors.Newf(errors.ErrorTypeInvalidSource,
			"cannot mark unregistered source %q (%s)", key, k)
	}
	entry.MarkLoaded(markAll)
	return nil
}

// MarshalJSON serializes the snapshot as one object per category keyed by
// source.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return json.Marshal(s.tables)
}

// UnmarshalJSON restores a snapshot, tolerating files that omit a category.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	tables := make(map[graph.Kind]map[SourceKey]*InputProgress)
	if err := json.Unmarshal(data, &tables); err != nil {
		return err
	}
	for _, k := range graph.Kinds() {
		if tables[k] == nil {
			tables[k] = map[SourceKey]*InputProgress{}
		}
	}
	s.mu.Lock()
	s.tables = tables
	s.mu.Unlock()
	return nil
}
