package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Message types for the TUI

// SourceStartMsg is sent when a source starts loading
type SourceStartMsg struct {
	ID   string
	Kind string
	Name string
	Size int64
}

// SourceProgressMsg is sent to update source progress
type SourceProgressMsg struct {
	ID       string
	Consumed int64
	Rate     float64
}

// SourceCompleteMsg is sent when a source finishes loading
type SourceCompleteMsg struct {
	ID string
}

// SourceErrorMsg is sent when a source fails
type SourceErrorMsg struct {
	ID    string
	Error error
}

// RateLimitUpdateMsg is sent to update rate limit status
type RateLimitUpdateMsg struct {
	Used    int
	Max     int
	ResetAt time.Time
}

// LogMsg is sent to add a log message
type LogMsg struct {
	Level   string
	Message string
}

// WindowSizeMsg is sent when the terminal is resized
type WindowSizeMsg struct {
	Width  int
	Height int
}

// TickMsg is sent periodically to update the UI
type TickMsg time.Time

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		// Regular UI update tick
		return m, tea.Batch(
			tickCmd(),
			m.spinner.Tick,
		)

	case SourceStartMsg:
		m.AddSource(msg.ID, msg.Kind, msg.Name, msg.Size)
		m.StartSource(msg.ID)
		m.AddLogMessage("INFO", "Loading "+msg.Kind+" source: "+msg.Name)
		return m, nil

	case SourceProgressMsg:
		m.UpdateSourceProgress(msg.ID, msg.Consumed, msg.Rate)
		return m, nil

	case SourceCompleteMsg:
		m.CompleteSource(msg.ID)
		if src, ok := m.sources[msg.ID]; ok {
			m.AddLogMessage("SUCCESS", "Finished: "+src.Name)
		}
		return m, nil

	case SourceErrorMsg:
		m.FailSource(msg.ID, msg.Error)
		if src, ok := m.sources[msg.ID]; ok {
			m.AddLogMessage("ERROR", "Failed: "+src.Name+" - "+msg.Error.Error())
		}
		return m, nil

	case RateLimitUpdateMsg:
		m.UpdateRateLimit(msg.Used, msg.Max, msg.ResetAt)
		return m, nil

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
		return m, nil

	case WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	}

	return m, nil
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		return m, tea.Quit

	case "p", "P":
		m.mu.Lock()
		m.isPaused = !m.isPaused
		paused := m.isPaused
		m.mu.Unlock()
		if paused {
			m.AddLogMessage("WARN", "Loading paused by user")
		} else {
			m.AddLogMessage("INFO", "Loading resumed by user")
		}
		return m, nil

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		// Clear logs
		m.mu.Lock()
		m.logMessages = []LogMessage{}
		m.mu.Unlock()
		return m, nil
	}

	return m, nil
}

// Commands

// tickCmd returns a command that sends a tick message
func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Helper functions for external use

// SendSourceStart creates a message to start a source
func SendSourceStart(id, kind, name string, size int64) tea.Msg {
	return SourceStartMsg{
		ID:   id,
		Kind: kind,
		Name: name,
		Size: size,
	}
}

// SendSourceProgress creates a message to update source progress
func SendSourceProgress(id string, consumed int64, rate float64) tea.Msg {
	return SourceProgressMsg{
		ID:       id,
		Consumed: consumed,
		Rate:     rate,
	}
}

// SendSourceComplete creates a message when a source finishes
func SendSourceComplete(id string) tea.Msg {
	return SourceCompleteMsg{ID: id}
}

// SendSourceError creates a message when a source fails
func SendSourceError(id string, err error) tea.Msg {
	return SourceErrorMsg{ID: id, Error: err}
}

// SendRateLimitUpdate creates a message to update rate limit
func SendRateLimitUpdate(used, max int, resetAt time.Time) tea.Msg {
	return RateLimitUpdateMsg{
		Used:    used,
		Max:     max,
		ResetAt: resetAt,
	}
}

// SendLog creates a log message
func SendLog(level, message string) tea.Msg {
	return LogMsg{Level: level, Message: message}
}
