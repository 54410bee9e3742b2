package tui

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SourceState represents the state of an input source
type SourceState int

const (
	SourcePending SourceState = iota
	SourceActive
	SourceCompleted
	SourceFailed
)

// SourceItem represents a single input source being loaded
type SourceItem struct {
	ID        string
	Kind      string
	Name      string
	Size      int64
	Consumed  int64
	State     SourceState
	StartTime time.Time
	Rate      float64
	Error     error
}

// Model represents the TUI model
type Model struct {
	// UI components
	spinner      spinner.Model
	progressBars map[string]progress.Model

	// Source state
	sources       map[string]*SourceItem
	sourceOrder   []string
	activeSources int
	maxConcurrent int

	// Stats
	totalCompleted   int
	totalBytes       int64
	sessionStartTime time.Time

	// Rate limiting
	rateLimitMax     int
	rateLimitUsed    int
	rateLimitResetAt time.Time

	// UI state
	width          int
	height         int
	showHelp       bool
	isPaused       bool
	logMessages    []LogMessage
	maxLogMessages int

	// Mutex for thread safety
	mu sync.RWMutex
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// NewModel creates a new TUI model
func NewModel(maxConcurrent int) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(neonCyan)

	return Model{
		spinner:          s,
		progressBars:     make(map[string]progress.Model),
		sources:          make(map[string]*SourceItem),
		sourceOrder:      []string{},
		maxConcurrent:    maxConcurrent,
		sessionStartTime: time.Now(),
		logMessages:      []LogMessage{},
		maxLogMessages:   50,
		rateLimitMax:     600, // Default requests per minute
	}
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// AddSource registers a new input source
func (m *Model) AddSource(id, kind, name string, size int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sources[id] = &SourceItem{
		ID:    id,
		Kind:  kind,
		Name:  name,
		Size:  size,
		State: SourcePending,
	}
	m.sourceOrder = append(m.sourceOrder, id)

	// Create progress bar for this source
	p := progress.New(progress.WithDefaultGradient())
	p.Width = 40
	m.progressBars[id] = p
}

// StartSource marks a source as active
func (m *Model) StartSource(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if src, ok := m.sources[id]; ok {
		src.State = SourceActive
		src.StartTime = time.Now()
		m.activeSources++
	}
}

// UpdateSourceProgress updates the byte cursor of a source
func (m *Model) UpdateSourceProgress(id string, consumed int64, rate float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if src, ok := m.sources[id]; ok {
		src.Consumed = consumed
		src.Rate = rate
	}
}

// CompleteSource marks a source as fully loaded
func (m *Model) CompleteSource(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if src, ok := m.sources[id]; ok {
		src.State = SourceCompleted
		src.Consumed = src.Size
		m.activeSources--
		m.totalCompleted++
		m.totalBytes += src.Size
	}
}

// FailSource marks a source as failed
func (m *Model) FailSource(id string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if src, ok := m.sources[id]; ok {
		src.State = SourceFailed
		src.Error = err
		m.activeSources--
	}
}

// UpdateRateLimit updates the rate limit status
func (m *Model) UpdateRateLimit(used, max int, resetAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rateLimitUsed = used
	m.rateLimitMax = max
	m.rateLimitResetAt = resetAt
}

// AddLogMessage adds a log message
func (m *Model) AddLogMessage(level, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	color := dimWhite
	switch level {
	case "ERROR":
		color = lipgloss.Color("#FF0000")
	case "WARN":
		color = neonOrange
	case "SUCCESS":
		color = neonGreen
	case "INFO":
		color = neonCyan
	}

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Color:   color,
	})

	// Keep only the last N messages
	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

// GetActiveSources returns a slice of sources currently loading
func (m *Model) GetActiveSources() []*SourceItem {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var active []*SourceItem
	for _, id := range m.sourceOrder {
		if src := m.sources[id]; src != nil && src.State == SourceActive {
			active = append(active, src)
		}
	}
	return active
}

// GetPendingSources returns a slice of sources waiting to start
func (m *Model) GetPendingSources() []*SourceItem {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var pending []*SourceItem
	for _, id := range m.sourceOrder {
		if src := m.sources[id]; src != nil && src.State == SourcePending {
			pending = append(pending, src)
		}
	}
	return pending
}

// GetCompletedSources returns a slice of fully loaded sources
func (m *Model) GetCompletedSources() []*SourceItem {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var completed []*SourceItem
	for _, id := range m.sourceOrder {
		if src := m.sources[id]; src != nil && src.State == SourceCompleted {
			completed = append(completed, src)
		}
	}
	return completed
}

// GetLoadStats returns throughput statistics across all sources
func (m *Model) GetLoadStats() (currentRate float64, avgRate float64, eta time.Duration) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var consumed, remaining int64
	for _, src := range m.sources {
		switch src.State {
		case SourceActive:
			currentRate += src.Rate
			consumed += src.Consumed
			if left := src.Size - src.Consumed; left > 0 {
				remaining += left
			}
		case SourceCompleted:
			consumed += src.Size
		case SourcePending:
			remaining += src.Size
		}
	}

	elapsed := time.Since(m.sessionStartTime)
	if elapsed > 0 {
		avgRate = float64(consumed) / elapsed.Seconds()
	}

	if remaining > 0 {
		rate := currentRate
		if rate == 0 {
			rate = avgRate
		}
		if rate > 0 {
			eta = time.Duration(float64(remaining)/rate) * time.Second
		}
	}

	return
}

// GetOverallProgress returns the consumed fraction across all sources
func (m *Model) GetOverallProgress() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var consumed, total int64
	for _, src := range m.sources {
		total += src.Size
		switch src.State {
		case SourceCompleted:
			consumed += src.Size
		default:
			consumed += src.Consumed
		}
	}

	if total == 0 {
		return 0
	}
	return float64(consumed) / float64(total)
}

// FormatBytes formats bytes to human readable format
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// FormatSpeed formats throughput in bytes per second
func FormatSpeed(bytesPerSecond float64) string {
	return fmt.Sprintf("%s/s", FormatBytes(int64(bytesPerSecond)))
}
