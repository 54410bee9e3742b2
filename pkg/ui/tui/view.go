package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// View renders the entire TUI
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	// Build the UI layout
	var sections []string

	// Logo
	sections = append(sections, m.renderLogo())

	// Main content area with two columns
	leftColumn := m.renderLeftColumn()
	rightColumn := m.renderRightColumn()

	mainContent := lipgloss.JoinHorizontal(
		lipgloss.Top,
		leftColumn,
		"  ", // spacing
		rightColumn,
	)
	sections = append(sections, mainContent)

	// Help
	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("Press ? for help"))
	}

	// Join all sections vertically
	return baseStyle.Width(m.width).Height(m.height).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

// renderLogo renders the cyberpunk logo
func (m *Model) renderLogo() string {
	logo := `
╔════════════════════════════════════════════════════════════════════════════╗
║  ██████╗ ██████╗  █████╗ ██████╗ ██╗  ██╗██╗      ██████╗  █████╗ ██████╗  ║
║ ██╔════╝ ██╔══██╗██╔══██╗██╔══██╗██║  ██║██║     ██╔═══██╗██╔══██╗██╔══██╗ ║
║ ██║  ███╗██████╔╝███████║██████╔╝███████║██║     ██║   ██║███████║██║  ██║ ║
║ ██║   ██║██╔══██╗██╔══██║██╔═══╝ ██╔══██║██║     ██║   ██║██╔══██║██║  ██║ ║
║ ╚██████╔╝██║  ██║██║  ██║██║     ██║  ██║███████╗╚██████╔╝██║  ██║██████╔╝ ║
║  ╚═════╝ ╚═╝  ╚═╝╚═╝  ╚═╝╚═╝     ╚═╝  ╚═╝╚══════╝ ╚═════╝ ╚═╝  ╚═╝╚═════╝  ║
║              BULK PROPERTY-GRAPH LOADER - CSV/JSONL INGESTION              ║
╚════════════════════════════════════════════════════════════════════════════╝`

	return logoStyle.Width(m.width).Render(logo)
}

// renderLeftColumn renders the left side of the UI
func (m *Model) renderLeftColumn() string {
	width := (m.width - 4) / 2

	var sections []string

	// Stats panel
	sections = append(sections, m.renderStatsPanel(width))

	// Active sources panel
	sections = append(sections, m.renderActiveSourcesPanel(width))

	// Source queue panel
	sections = append(sections, m.renderQueuePanel(width))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderRightColumn renders the right side of the UI
func (m *Model) renderRightColumn() string {
	width := (m.width - 4) / 2

	var sections []string

	// Rate limit panel
	sections = append(sections, m.renderRateLimitPanel(width))

	// Logs panel
	sections = append(sections, m.renderLogsPanel(width))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderStatsPanel renders the statistics panel
func (m *Model) renderStatsPanel(width int) string {
	m.mu.RLock()
	elapsed := time.Since(m.sessionStartTime)
	completed := m.totalCompleted
	loadedBytes := m.totalBytes
	paused := m.isPaused
	m.mu.RUnlock()

	title := titleStyle.Render(" LOAD STATS ")

	currentRate, avgRate, eta := m.GetLoadStats()
	overall := m.GetOverallProgress() * 100

	stats := []string{
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Session Time:"), statsValueStyle.Render(formatDuration(elapsed))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Sources Loaded:"), statsValueStyle.Render(fmt.Sprintf("%d sources", completed))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Bytes Loaded:"), statsValueStyle.Render(FormatBytes(loadedBytes))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Current Rate:"), rateStyle.Render(FormatSpeed(currentRate))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Average Rate:"), rateStyle.Render(FormatSpeed(avgRate))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("ETA:"), statsValueStyle.Render(formatDuration(eta))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Overall:"), GetProgressBarStyle(overall).Render(fmt.Sprintf("%.0f%%", overall))),
	}

	if paused {
		stats = append(stats, GlowText("⏸  PAUSED", neonYellow))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, stats...)

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

// renderActiveSourcesPanel renders the sources currently loading
func (m *Model) renderActiveSourcesPanel(width int) string {
	title := titleStyle.Render(" ACTIVE SOURCES ")

	active := m.GetActiveSources()

	if len(active) == 0 {
		content := lipgloss.NewStyle().Foreground(dimWhite).Render("No active sources")
		return panelStyle.Width(width).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, content),
		)
	}

	var sources []string
	for _, src := range active {
		sources = append(sources, m.renderSourceItem(src, width-4))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, sources...)

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

// renderSourceItem renders a single source with progress bar
func (m *Model) renderSourceItem(item *SourceItem, width int) string {
	m.mu.RLock()
	progressBar, ok := m.progressBars[item.ID]
	m.mu.RUnlock()

	if !ok {
		return ""
	}

	progress := 1.0
	if item.Size > 0 {
		progress = float64(item.Consumed) / float64(item.Size)
	}
	if progress > 1.0 {
		progress = 1.0
	}

	// Update progress bar
	progressBar.Width = width - 20

	info := fmt.Sprintf("%s %s @ %s",
		sourceItemActiveStyle.Render("["+item.Kind+"] "+item.Name),
		lipgloss.NewStyle().Foreground(dimWhite).Render(FormatBytes(item.Consumed)+"/"+FormatBytes(item.Size)),
		rateStyle.Render(FormatSpeed(item.Rate)),
	)

	bar := progressBar.ViewAs(progress)

	return lipgloss.JoinVertical(lipgloss.Left, info, bar)
}

// renderQueuePanel renders the source queue
func (m *Model) renderQueuePanel(width int) string {
	title := titleStyle.Render(" SOURCE QUEUE ")

	pending := m.GetPendingSources()
	completed := m.GetCompletedSources()

	var items []string

	// Show some pending items
	pendingCount := len(pending)
	if pendingCount > 0 {
		items = append(items, warningStyle.Render(fmt.Sprintf("⏳ %d pending", pendingCount)))
		for i := 0; i < 3 && i < pendingCount; i++ {
			items = append(items, sourceItemStyle.Render("• ["+pending[i].Kind+"] "+pending[i].Name))
		}
		if pendingCount > 3 {
			items = append(items, lipgloss.NewStyle().Foreground(dimWhite).Render(fmt.Sprintf("  ... and %d more", pendingCount-3)))
		}
	}

	// Show recent completed
	completedCount := len(completed)
	if completedCount > 0 {
		items = append(items, "", successStyle.Render(fmt.Sprintf("✓ %d completed", completedCount)))
		start := completedCount - 3
		if start < 0 {
			start = 0
		}
		for i := start; i < completedCount; i++ {
			items = append(items, sourceItemDoneStyle.Render("✓ "+completed[i].Name))
		}
	}

	content := lipgloss.JoinVertical(lipgloss.Left, items...)

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

// renderRateLimitPanel renders the rate limit status
func (m *Model) renderRateLimitPanel(width int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	title := titleStyle.Render(" RATE LIMIT STATUS ")

	usage := float64(m.rateLimitUsed) / float64(m.rateLimitMax) * 100

	// Create progress bar for rate limit
	barWidth := width - 8
	filled := int(usage * float64(barWidth) / 100)
	if filled > barWidth {
		filled = barWidth
	}
	empty := barWidth - filled

	barStyle := GetRateLimitStyle(usage)
	bar := barStyle.Render(strings.Repeat("█", filled)) +
		progressEmptyStyle.Render(strings.Repeat("░", empty))

	resetIn := time.Until(m.rateLimitResetAt)
	if resetIn < 0 {
		resetIn = 0
	}

	content := []string{
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Usage:"),
			barStyle.Render(fmt.Sprintf("%d/%d (%.0f%%)", m.rateLimitUsed, m.rateLimitMax, usage))),
		bar,
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Reset in:"),
			statsValueStyle.Render(formatDuration(resetIn))),
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(content, "\n")),
	)
}

// renderLogsPanel renders the logs panel
func (m *Model) renderLogsPanel(width int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	title := titleStyle.Render(" SYSTEM LOGS ")

	// Get recent logs
	start := len(m.logMessages) - 10
	if start < 0 {
		start = 0
	}

	var logs []string
	for i := start; i < len(m.logMessages); i++ {
		log := m.logMessages[i]
		timestamp := logTimestampStyle.Render(log.Time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(log.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", log.Level))
		message := logMessageStyle.Render(log.Message)

		// Truncate message if too long
		maxMsgLen := width - 25
		if len(message) > maxMsgLen {
			message = message[:maxMsgLen-3] + "..."
		}

		logs = append(logs, fmt.Sprintf("%s %s %s", timestamp, level, message))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = lipgloss.NewStyle().Foreground(dimWhite).Render("No logs yet...")
	}

	// Calculate height for logs panel to fill remaining space
	logsHeight := m.height - 35 // Approximate calculation
	if logsHeight < 5 {
		logsHeight = 5
	}

	return panelStyle.Width(width).Height(logsHeight).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

// renderHelp renders the help panel
func (m *Model) renderHelp() string {
	help := `
  Navigation:
    q/Q      - Quit the application
    p/P      - Pause/Resume loading
    ?        - Toggle this help

  Status Indicators:
    ` + successStyle.Render("Green") + `    - Active/Healthy
    ` + warningStyle.Render("Orange") + `   - Warning/Pending
    ` + errorStyle.Render("Red") + `      - Error/Critical

  Icons:
    ⏳       - Pending source
    ✓        - Completed source
    ⏸        - Paused
    █        - Progress indicator
`

	return panelStyle.Width(m.width).Render(help)
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "00:00:00"
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
