package summary

import (
	"strings"
	"sync"
	"testing"
	"time"

	"graphload/pkg/graph"
)

func TestKindStatsCounters(t *testing.T) {
	s := New()

	stats := s.Kind(graph.KindVertex)
	stats.AddParsed(10)
	stats.AddLoaded(8)
	stats.AddParseFailure()
	stats.AddInsertFailures(2)
	stats.AddBytes(512)

	if got := stats.Parsed(); got != 10 {
		t.Errorf("Parsed() = %d, want 10", got)
	}
	if got := stats.Loaded(); got != 8 {
		t.Errorf("Loaded() = %d, want 8", got)
	}
	if got := stats.ParseFailures(); got != 1 {
		t.Errorf("ParseFailures() = %d, want 1", got)
	}
	if got := stats.InsertFailures(); got != 2 {
		t.Errorf("InsertFailures() = %d, want 2", got)
	}
	if got := stats.Failures(); got != 3 {
		t.Errorf("Failures() = %d, want 3", got)
	}
	if got := stats.Bytes(); got != 512 {
		t.Errorf("Bytes() = %d, want 512", got)
	}

	// The edge bucket is untouched.
	if got := s.Kind(graph.KindEdge).Parsed(); got != 0 {
		t.Errorf("edge Parsed() = %d, want 0", got)
	}
}

func TestKindStatsConcurrentUpdates(t *testing.T) {
	s := New()
	stats := s.Kind(graph.KindEdge)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				stats.AddParsed(1)
				stats.AddLoaded(1)
			}
		}()
	}
	wg.Wait()

	if got := stats.Parsed(); got != 1000 {
		t.Errorf("Parsed() = %d, want 1000", got)
	}
	if got := stats.Loaded(); got != 1000 {
		t.Errorf("Loaded() = %d, want 1000", got)
	}
}

func TestKindStatsElapsedAndRate(t *testing.T) {
	s := New()
	stats := s.Kind(graph.KindVertex)

	if got := stats.Elapsed(); got != 0 {
		t.Errorf("Elapsed() before Begin = %v, want 0", got)
	}
	if got := stats.Rate(); got != 0 {
		t.Errorf("Rate() before Begin = %f, want 0", got)
	}

	stats.Begin()
	stats.AddLoaded(100)
	time.Sleep(20 * time.Millisecond)
	stats.End()

	elapsed := stats.Elapsed()
	if elapsed < 20*time.Millisecond {
		t.Errorf("Elapsed() = %v, want at least 20ms", elapsed)
	}

	// Elapsed is frozen after End.
	time.Sleep(10 * time.Millisecond)
	if got := stats.Elapsed(); got != elapsed {
		t.Errorf("Elapsed() changed after End: %v != %v", got, elapsed)
	}

	if got := stats.Rate(); got <= 0 {
		t.Errorf("Rate() = %f, want positive", got)
	}
}

func TestSummaryTotals(t *testing.T) {
	s := New()
	s.Kind(graph.KindVertex).AddLoaded(100)
	s.Kind(graph.KindVertex).AddParseFailure()
	s.Kind(graph.KindEdge).AddLoaded(70)
	s.Kind(graph.KindEdge).AddInsertFailures(5)

	if got := s.TotalLoaded(); got != 170 {
		t.Errorf("TotalLoaded() = %d, want 170", got)
	}
	if got := s.TotalFailures(); got != 6 {
		t.Errorf("TotalFailures() = %d, want 6", got)
	}
}

func TestSummaryFields(t *testing.T) {
	s := New()
	s.Kind(graph.KindVertex).AddParsed(3)
	s.Kind(graph.KindEdge).AddLoaded(2)

	fields := s.Fields()
	if got := fields["vertex_parsed"]; got != int64(3) {
		t.Errorf("fields[vertex_parsed] = %v, want 3", got)
	}
	if got := fields["edge_loaded"]; got != int64(2) {
		t.Errorf("fields[edge_loaded] = %v, want 2", got)
	}
	if _, ok := fields["vertex_elapsed"]; !ok {
		t.Error("fields missing vertex_elapsed")
	}
}

func TestSummaryRender(t *testing.T) {
	s := New()
	vertex := s.Kind(graph.KindVertex)
	vertex.Begin()
	vertex.AddParsed(1500)
	vertex.AddLoaded(1500)
	vertex.AddBytes(2048)
	vertex.End()

	out := s.Render()
	if !strings.Contains(out, "vertex") {
		t.Errorf("Render() missing vertex line:\n%s", out)
	}
	if !strings.Contains(out, "1,500") {
		t.Errorf("Render() missing comma-grouped count:\n%s", out)
	}
	if !strings.Contains(out, "total") {
		t.Errorf("Render() missing total line:\n%s", out)
	}
	// The untouched edge category is left out entirely.
	if strings.Contains(out, "edge") {
		t.Errorf("Render() should skip empty categories:\n%s", out)
	}
}

func TestSummaryRenderFailures(t *testing.T) {
	s := New()
	edge := s.Kind(graph.KindEdge)
	edge.AddParsed(10)
	edge.AddLoaded(7)
	edge.AddParseFailure()
	edge.AddInsertFailures(3)

	out := s.Render()
	if !strings.Contains(out, "parse failures") {
		t.Errorf("Render() missing failure line:\n%s", out)
	}
	if !strings.Contains(out, "4 failures") {
		t.Errorf("Render() missing total failures:\n%s", out)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Millisecond, "500ms"},
		{2500 * time.Millisecond, "2.5s"},
		{90 * time.Second, "1m30s"},
		{2*time.Hour + 15*time.Minute, "2h15m"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
