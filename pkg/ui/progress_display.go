package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// ProgressDisplay provides a clean, minimal progress display
type ProgressDisplay struct {
	mu            sync.Mutex
	graphName     string
	totalBytes    int64
	consumedBytes int64
	loadedCount   int64
	failedCount   int64
	activeSources map[string]int64
	currentSource string
	startTime     time.Time
	lastUpdate    time.Time
	isDebug       bool
}

// NewProgressDisplay creates a new progress display
func NewProgressDisplay(graphName string, debug bool) *ProgressDisplay {
	return &ProgressDisplay{
		graphName:     graphName,
		activeSources: make(map[string]int64),
		startTime:     time.Now(),
		lastUpdate:    time.Now(),
		isDebug:       debug,
	}
}

// StartSource marks the start of a new input source
func (p *ProgressDisplay) StartSource(kind, source string, size int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := kind + "/" + source
	p.activeSources[id] = size
	p.totalBytes += size
	p.currentSource = source
	p.lastUpdate = time.Now()

	if p.isDebug {
		fmt.Printf("\n%s Loading %s source %s (%s)\n",
			Magenta("→"), kind, source, humanize.Bytes(uint64(size)))
	} else {
		p.printProgress()
	}
}

// CompleteBatch records an inserted batch
func (p *ProgressDisplay) CompleteBatch(kind, source string, inserted int, bytes int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.loadedCount += int64(inserted)
	p.consumedBytes += bytes
	p.lastUpdate = time.Now()

	if p.isDebug {
		fmt.Printf("%s %s %s • %d records • %s\n",
			Green("✓"), kind, source, inserted, humanize.Bytes(uint64(bytes)))
	} else {
		p.printProgress()
	}
}

// FailBatch records a batch whose insert was rejected
func (p *ProgressDisplay) FailBatch(kind, source string, records int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failedCount += int64(records)
	p.lastUpdate = time.Now()

	if p.isDebug {
		fmt.Printf("%s batch of %d %s records from %s failed: %v\n",
			Red("✗"), records, kind, source, err)
	} else {
		p.printProgress()
	}
}

// CompleteSource marks a source as fully loaded
func (p *ProgressDisplay) CompleteSource(kind, source string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.activeSources, kind+"/"+source)
	if p.currentSource == source {
		p.currentSource = ""
	}
	p.lastUpdate = time.Now()

	if p.isDebug {
		fmt.Printf("%s finished %s source %s\n", Green("✓"), kind, source)
	} else {
		p.printProgress()
	}
}

// FailSource marks a source as aborted
func (p *ProgressDisplay) FailSource(kind, source string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.activeSources, kind+"/"+source)
	if p.currentSource == source {
		p.currentSource = ""
	}
	p.lastUpdate = time.Now()

	fmt.Printf("\n%s %s source %s aborted: %v\n", Red("✗"), kind, source, err)
}

// printProgress prints the minimal progress line
func (p *ProgressDisplay) printProgress() {
	if IsQuietMode() {
		return
	}

	// Calculate stats
	elapsed := time.Since(p.startTime)
	rate := float64(p.loadedCount) / elapsed.Minutes()
	eta := p.calculateETA()

	// Build progress bar over consumed bytes
	progress := 0.0
	if p.totalBytes > 0 {
		progress = float64(p.consumedBytes) / float64(p.totalBytes)
	}
	if progress > 1 {
		progress = 1
	}
	barWidth := 20
	filled := int(progress * float64(barWidth))
	bar := strings.Repeat("━", filled) + strings.Repeat("─", barWidth-filled)

	// Format line
	line := fmt.Sprintf("\r%s [%s] %s loaded • %.0f/min • %s/%s • %s",
		Cyan(p.graphName),
		bar,
		humanize.Comma(p.loadedCount),
		rate,
		humanize.Bytes(uint64(p.consumedBytes)),
		humanize.Bytes(uint64(p.totalBytes)),
		eta,
	)

	// Add current source if loading
	if p.currentSource != "" {
		line += fmt.Sprintf(" • %s", p.currentSource)
	}

	// Add failures if any
	if p.failedCount > 0 {
		line += fmt.Sprintf(" • %s", Red(fmt.Sprintf("%d failed", p.failedCount)))
	}

	// Clear line and print
	fmt.Printf("\r%s\r%s", strings.Repeat(" ", 120), line)
}

// Complete marks the entire load as complete
func (p *ProgressDisplay) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if IsQuietMode() {
		return
	}

	elapsed := time.Since(p.startTime)

	fmt.Printf("\n\n%s Loaded %s elements into graph %s\n",
		Green("✓"),
		humanize.Comma(p.loadedCount),
		p.graphName,
	)

	// Summary stats
	fmt.Printf("  %s %s in %s (%.0f elements/min)\n",
		Dim("•"),
		humanize.Bytes(uint64(p.consumedBytes)),
		p.formatDuration(elapsed),
		float64(p.loadedCount)/elapsed.Minutes(),
	)

	if p.failedCount > 0 {
		fmt.Printf("  %s %s records failed\n",
			Dim("•"),
			humanize.Comma(p.failedCount),
		)
	}
}

// calculateETA estimates time remaining from the byte cursor
func (p *ProgressDisplay) calculateETA() string {
	if p.consumedBytes == 0 || p.totalBytes == 0 {
		return "calculating..."
	}

	remaining := p.totalBytes - p.consumedBytes
	if remaining < 0 {
		remaining = 0
	}
	elapsed := time.Since(p.startTime)
	rate := float64(p.consumedBytes) / elapsed.Seconds()

	if rate == 0 {
		return "calculating..."
	}

	etaSeconds := float64(remaining) / rate
	eta := time.Duration(etaSeconds) * time.Second

	return p.formatDuration(eta)
}

// formatDuration formats a duration in a human-readable way
func (p *ProgressDisplay) formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	} else {
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

// RateLimitWarning shows a rate limit warning
func (p *ProgressDisplay) RateLimitWarning(waitTime time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if IsQuietMode() {
		return
	}

	fmt.Printf("\n%s Rate limit reached. Waiting %s...\n",
		Yellow("⚠"),
		p.formatDuration(waitTime),
	)
}
