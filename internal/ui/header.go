package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/five82/lumen/internal/imgapi"
	"github.com/five82/lumen/internal/opguard"
)

// renderHeader renders the status bar with all information.
func (m Model) renderHeader() string {
	// Header uses Surface background
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	if !m.snapshot.HasHealth {
		return m.renderConnectingHeader(styles, bg)
	}

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Foreground(lipgloss.Color(m.theme.Text)).
		Width(m.width).
		Render(m.buildStatusContent(styles, bg))
}

// renderConnectingHeader shows the connecting/error state.
func (m Model) renderConnectingHeader(styles Styles, bg BgStyle) string {
	sep := bg.Spaces(2)

	if m.snapshot.LastError != nil {
		last := "soon"
		if !m.lastUpdated.IsZero() {
			last = m.lastUpdated.Format("15:04:05")
		}
		parts := []string{
			bg.Render("lumen", styles.Logo),
			bg.Render("SERVER "+classifyConnectionError(m.snapshot.LastError), styles.DangerText.Bold(true)),
			bg.Render("Retrying...", styles.WarningText.Bold(true)),
			bg.Render(last, styles.MutedText),
			bg.Render("api", styles.FaintText) + bg.Space() +
				bg.Render(truncateMiddle(m.cfg.APIBind, 40), styles.MutedText),
		}
		return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
	}

	return styles.Header.Width(m.width).Render(
		bg.Render("lumen", styles.Logo) + sep +
			bg.Render("Connecting to "+m.cfg.APIBind+"...", styles.WarningText.Bold(true)),
	)
}

// buildStatusContent builds the status bar content string.
func (m Model) buildStatusContent(styles Styles, bg BgStyle) string {
	compact := m.width < LayoutCompactWidth
	health := m.snapshot.Health

	parts := []string{bg.Render("lumen", styles.Logo)}

	// Server state
	switch {
	case m.snapshot.IsOffline():
		parts = append(parts, bg.Render("● OFFLINE", styles.DangerText))
	case m.snapshot.Ready():
		parts = append(parts, bg.Render("● READY", styles.SuccessText))
	case !health.ModelsLoaded:
		parts = append(parts, bg.Render("● NO MODELS", styles.WarningText.Bold(true)))
	default:
		parts = append(parts, bg.Render("● "+strings.ToUpper(health.Status), styles.WarningText.Bold(true)))
	}
	if !compact {
		if health.Version != "" {
			parts = append(parts, bg.Render("v"+health.Version, styles.MutedText))
		}
		if !health.DatabaseConnected {
			parts = append(parts, bg.Render("DB DOWN", styles.DangerText))
		}
		if up := health.UptimeDuration(); up > 0 {
			parts = append(parts,
				bg.Render("up", styles.MutedText)+bg.Space()+
					bg.Render(humanize.RelTime(time.Now().Add(-up), time.Now(), "", ""), styles.Text))
		}
		if m.snapshot.Latency > 0 {
			parts = append(parts, bg.Render(m.snapshot.Latency.Round(time.Millisecond).String(), styles.FaintText))
		}
	}

	// Browse state
	st := m.browser.State()
	label := "Images:"
	if st.IsSearchMode() {
		label = "Search:"
	}
	count := fmt.Sprintf("%d", len(st.Results))
	if st.Loading {
		count = m.spinner.View()
	}
	parts = append(parts, bg.Render(label, styles.MutedText)+bg.Space()+bg.Render(count, styles.Text))
	if m.thumbs.IsLoading() {
		parts = append(parts, bg.Render(fmt.Sprintf("↓%d", m.thumbs.Pending()), styles.FaintText))
	}
	if st.IsFilterMode() {
		parts = append(parts,
			bg.Render("Objects:", styles.MutedText)+bg.Space()+
				bg.Render(truncate(strings.Join(st.Objects, ","), 24), styles.AccentText))
	}

	// Tasks
	if counts := m.board.Counts(); counts.Active > 0 {
		color := lipgloss.Color(m.theme.StatusColors[string(imgapi.StatusProcessing)])
		parts = append(parts,
			bg.Render("Tasks:", styles.MutedText)+bg.Space()+
				bg.Render(fmt.Sprintf("%d", counts.Active), lipgloss.NewStyle().Foreground(color)))
	}

	// Slow operations
	for _, op := range m.activeOperations() {
		if op.State != opguard.Warned {
			continue
		}
		parts = append(parts,
			bg.Render("SLOW", styles.WarningText.Bold(true))+bg.Space()+
				bg.Render(operationLabel(op), styles.WarningText))
	}

	if ts := m.formatTimestamp(); ts != "" && !compact {
		parts = append(parts, bg.Render(ts, styles.MutedText))
	}

	if err := m.snapshot.LastError; err != nil {
		maxErr := 60
		if compact {
			maxErr = 30
		}
		parts = append(parts,
			bg.Render("ERROR", styles.DangerText.Bold(true))+bg.Space()+
				bg.Render(truncate(err.Error(), maxErr), styles.DangerText))
	}

	return bg.Join(parts, "  ")
}

// activeOperations returns the browse operation followed by server actions.
func (m Model) activeOperations() []opguard.Operation {
	var ops []opguard.Operation
	if op := m.browser.Operation(); op.State == opguard.Running || op.State == opguard.Warned {
		ops = append(ops, op)
	}
	return append(ops, m.guards.Active()...)
}

// formatTimestamp formats the last update time with relative indicator.
func (m Model) formatTimestamp() string {
	if m.snapshot.LastUpdated.IsZero() {
		return ""
	}
	ts := m.snapshot.LastUpdated
	if time.Since(ts) < time.Minute {
		return ts.Format("15:04:05") + " (now)"
	}
	return ts.Format("15:04:05") + " (" + humanize.Time(ts) + ")"
}

// operationLabel names an operation for notices and the header.
func operationLabel(op opguard.Operation) string {
	switch op.ID {
	case opProcess:
		return "directory submit"
	case opScan:
		return "directory scan"
	case opUpload:
		return "upload"
	case opPreload:
		return "model preload"
	}
	return op.Kind.String() + " request"
}

// classifyConnectionError returns a short description of the connection error.
func classifyConnectionError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "OFFLINE"
	case strings.Contains(msg, "no such host"):
		return "HOST NOT FOUND"
	case strings.Contains(msg, "timed out"), strings.Contains(msg, "timeout"):
		return "TIMEOUT"
	default:
		return "ERROR"
	}
}

// renderCommandBar renders the command hints bar.
func (m Model) renderCommandBar() string {
	// Command bar uses Surface background
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd

	switch m.currentView {
	case ViewTasks:
		commands = []cmd{
			{"d", "Process"},
			{"S", "Scan"},
			{"x", "Unfollow"},
			{"r", "Results"},
			{"l", "Logs"},
			{"?", "More"},
		}
	case ViewLogs:
		commands = []cmd{
			{"j/k", "Scroll"},
			{"G", "Bottom"},
			{"r", "Results"},
			{"t", "Tasks"},
			{"?", "More"},
		}
	default: // ViewResults
		scores := "Scores"
		if m.showScores {
			scores = "Hide scores"
		}
		commands = []cmd{
			{"/", "Search"},
			{"o", "Objects"},
			{"c", "Clear"},
			{"s", scores},
			{"u", "Upload"},
			{"d", "Process"},
			{"t", "Tasks"},
			{"?", "More"},
		}
	}

	colon := bg.Sep(":")
	segments := make([]string, 0, len(commands)+2)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}

	if st := m.browser.State(); m.currentView == ViewResults && st.IsSearchMode() {
		segments = append(segments, bg.Render("/"+truncate(st.Query, 24), styles.AccentText))
	}

	// Add theme indicator
	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(strings.Join(segments, bg.Spaces(2)))
}
