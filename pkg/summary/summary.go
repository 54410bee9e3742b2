// Package summary accumulates the run totals reported when a load job
// finishes: per-category record counts, failure counts, elapsed times and
// throughput rates.
package summary

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"graphload/pkg/graph"
)

// KindStats holds the totals for one element category. Counters are atomic
// because source workers and pool workers record events concurrently.
type KindStats struct {
	parsed         atomic.Int64
	parseFailures  atomic.Int64
	loaded         atomic.Int64
	insertFailures atomic.Int64
	bytes          atomic.Int64

	mu      sync.Mutex
	started time.Time
	elapsed time.Duration
}

// Begin marks the start of this category's load phase.
func (s *KindStats) Begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = time.Now()
}

// End freezes the category's elapsed time. Calling End without Begin leaves
// the elapsed time at zero.
func (s *KindStats) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started.IsZero() {
		s.elapsed = time.Since(s.started)
	}
}

// AddParsed records n records successfully converted into elements.
func (s *KindStats) AddParsed(n int64) {
	s.parsed.Add(n)
}

// AddParseFailure records one record that could not be converted.
func (s *KindStats) AddParseFailure() {
	s.parseFailures.Add(1)
}

// AddLoaded records n elements acknowledged by the graph server.
func (s *KindStats) AddLoaded(n int64) {
	s.loaded.Add(n)
}

// AddInsertFailures records n elements the server rejected.
func (s *KindStats) AddInsertFailures(n int64) {
	s.insertFailures.Add(n)
}

// AddBytes records input bytes consumed for this category.
func (s *KindStats) AddBytes(n int64) {
	s.bytes.Add(n)
}

func (s *KindStats) Parsed() int64         { return s.parsed.Load() }
func (s *KindStats) ParseFailures() int64  { return s.parseFailures.Load() }
func (s *KindStats) Loaded() int64         { return s.loaded.Load() }
func (s *KindStats) InsertFailures() int64 { return s.insertFailures.Load() }
func (s *KindStats) Bytes() int64          { return s.bytes.Load() }

// Elapsed returns the category's frozen phase duration, or the running time
// when the phase has not ended yet.
func (s *KindStats) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.elapsed > 0 {
		return s.elapsed
	}
	if s.started.IsZero() {
		return 0
	}
	return time.Since(s.started)
}

// Rate returns loaded records per second over the category's elapsed time.
func (s *KindStats) Rate() float64 {
	elapsed := s.Elapsed().Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(s.loaded.Load()) / elapsed
}

// Failures returns the category's combined parse and insert failure count.
func (s *KindStats) Failures() int64 {
	return s.parseFailures.Load() + s.insertFailures.Load()
}

// Summary holds the per-category stats for one run.
type Summary struct {
	vertex KindStats
	edge   KindStats
}

func New() *Summary {
	return &Summary{}
}

// Kind returns the stats bucket for one category.
func (s *Summary) Kind(k graph.Kind) *KindStats {
	if k.IsVertex() {
		return &s.vertex
	}
	return &s.edge
}

// TotalLoaded returns the number of elements acknowledged across both
// categories.
func (s *Summary) TotalLoaded() int64 {
	return s.vertex.Loaded() + s.edge.Loaded()
}

// TotalFailures returns the combined failure count across both categories.
func (s *Summary) TotalFailures() int64 {
	return s.vertex.Failures() + s.edge.Failures()
}

// Fields flattens the summary into log fields for the final run log line.
func (s *Summary) Fields() map[string]interface{} {
	fields := make(map[string]interface{})
	for _, k := range graph.Kinds() {
		stats := s.Kind(k)
		prefix := k.String()
		fields[prefix+"_parsed"] = stats.Parsed()
		fields[prefix+"_loaded"] = stats.Loaded()
		fields[prefix+"_parse_failures"] = stats.ParseFailures()
		fields[prefix+"_insert_failures"] = stats.InsertFailures()
		fields[prefix+"_bytes"] = stats.Bytes()
		fields[prefix+"_elapsed"] = stats.Elapsed()
	}
	return fields
}

// Render formats the summary as the block printed when a run completes.
func (s *Summary) Render() string {
	var b strings.Builder

	b.WriteString("load summary\n")
	for _, k := range graph.Kinds() {
		stats := s.Kind(k)
		if stats.Parsed() == 0 && stats.Failures() == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("  %-8s %s loaded of %s parsed (%s) in %s at %.1f/s\n",
			k.String(),
			humanize.Comma(stats.Loaded()),
			humanize.Comma(stats.Parsed()),
			humanize.Bytes(uint64(stats.Bytes())),
			formatDuration(stats.Elapsed()),
			stats.Rate(),
		))
		if stats.Failures() > 0 {
			b.WriteString(fmt.Sprintf("  %-8s %s parse failures, %s insert failures\n",
				"",
				humanize.Comma(stats.ParseFailures()),
				humanize.Comma(stats.InsertFailures()),
			))
		}
	}
	b.WriteString(fmt.Sprintf("  total    %s elements loaded, %s failures",
		humanize.Comma(s.TotalLoaded()),
		humanize.Comma(s.TotalFailures()),
	))

	return b.String()
}

// formatDuration renders a duration the way it reads in a terminal.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
