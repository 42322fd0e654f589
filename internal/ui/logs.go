package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/lumen/internal/logtail"
)

type logLinesMsg struct {
	lines []string
	err   error
}

func readLogCmd(path string) tea.Cmd {
	return func() tea.Msg {
		lines, err := logtail.Read(path, LogTailLines)
		return logLinesMsg{lines: lines, err: err}
	}
}

// handleLogLines replaces the buffered lines, following the tail when the
// viewport was already at the bottom.
func (m *Model) handleLogLines(msg logLinesMsg) {
	if msg.err != nil {
		m.logLines = []string{"log unavailable: " + msg.err.Error()}
	} else {
		m.logLines = msg.lines
	}
	follow := m.logViewport.AtBottom() || m.logViewport.TotalLineCount() == 0
	m.logViewport.SetContent(m.colorizeLogs())
	if follow {
		m.logViewport.GotoBottom()
	}
}

func (m Model) colorizeLogs() string {
	styles := m.theme.Styles()
	width := maxInt(10, m.logViewport.Width)
	out := make([]string, len(m.logLines))
	for i, line := range m.logLines {
		line = truncate(line, width)
		switch logtail.Classify(line) {
		case logtail.SeverityError:
			out[i] = styles.DangerText.Render(line)
		case logtail.SeverityWarn:
			out[i] = styles.WarningText.Render(line)
		default:
			out[i] = styles.Text.Render(line)
		}
	}
	return strings.Join(out, "\n")
}

// handleLogsKey processes keyboard input for the logs view.
func (m Model) handleLogsKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Down):
		m.logViewport.LineDown(1)
	case key.Matches(msg, m.keys.Up):
		m.logViewport.LineUp(1)
	case key.Matches(msg, m.keys.HalfPageDown):
		m.logViewport.HalfViewDown()
	case key.Matches(msg, m.keys.HalfPageUp):
		m.logViewport.HalfViewUp()
	case key.Matches(msg, m.keys.Top):
		m.logViewport.GotoTop()
	case key.Matches(msg, m.keys.Bottom):
		m.logViewport.GotoBottom()
	}
	return m, nil
}

// renderLogs renders the client log tail.
func (m Model) renderLogs() string {
	if len(m.logLines) == 0 {
		styles := m.theme.Styles()
		return styles.FaintText.Render(" no log output yet (" + truncateMiddle(m.cfg.LogFile, 60) + ")")
	}
	return m.logViewport.View()
}
