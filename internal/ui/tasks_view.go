package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/five82/lumen/internal/imgapi"
)

// handleTasksKey processes keyboard input for the tasks view.
func (m Model) handleTasksKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if key.Matches(msg, m.keys.CancelPoll) {
		id, ok := m.follows.cancel(m.poller.Active)
		if !ok {
			return m.notify(noticeInfo, "no task is being followed"), nil
		}
		return m.notify(noticeInfo, "stopped following task "+shortID(id)), nil
	}
	return m, nil
}

// renderTasks renders the followed tasks and the server task board.
func (m Model) renderTasks() string {
	styles := m.theme.Styles()
	var b strings.Builder

	counts := m.board.Counts()
	b.WriteString(styles.AccentText.Bold(true).Render("Server tasks"))
	b.WriteString("  ")
	b.WriteString(styles.MutedText.Render(fmt.Sprintf("%d total · ", counts.Total)))
	b.WriteString(styles.InfoText.Render(fmt.Sprintf("%d active", counts.Active)))
	b.WriteString(styles.MutedText.Render(" · "))
	b.WriteString(styles.SuccessText.Render(fmt.Sprintf("%d completed", counts.Completed)))
	b.WriteString(styles.MutedText.Render(" · "))
	failedStyle := styles.MutedText
	if counts.Failed > 0 {
		failedStyle = styles.DangerText
	}
	b.WriteString(failedStyle.Render(fmt.Sprintf("%d failed", counts.Failed)))
	if ts := m.board.LastUpdated(); !ts.IsZero() {
		b.WriteString(styles.FaintText.Render("  updated " + humanize.Time(ts)))
	}
	if err := m.board.Err(); err != nil {
		b.WriteString("  ")
		b.WriteString(styles.DangerText.Render(truncate(imgapi.UserMessage(err), 40)))
	}
	b.WriteString("\n\n")

	if ops := m.activeOperations(); len(ops) > 0 {
		b.WriteString(styles.Text.Bold(true).Render("Running"))
		b.WriteString("\n")
		for _, op := range ops {
			b.WriteString(styles.StatusStyle(op.State.String()).Render(padRight(op.State.String(), 10)))
			b.WriteString(" ")
			b.WriteString(styles.Text.Render(operationLabel(op)))
			b.WriteString(styles.MutedText.Render(fmt.Sprintf("  %s left", op.Remaining().Round(time.Second))))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	followed := m.follows.list()
	if len(followed) > 0 {
		b.WriteString(styles.Text.Bold(true).Render("Following"))
		b.WriteString("\n")
		for _, t := range followed {
			b.WriteString(m.renderTaskRow(t, true))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(styles.Text.Bold(true).Render("Recent"))
	b.WriteString("\n")
	recent := m.board.Tasks()
	if len(recent) == 0 {
		b.WriteString(styles.FaintText.Render("  no tasks reported by the server"))
		b.WriteString("\n")
	}
	for _, t := range recent {
		b.WriteString(m.renderTaskRow(t, false))
		b.WriteString("\n")
	}

	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.contentHeight()).
		MaxHeight(m.contentHeight()).
		Padding(0, 1).
		Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) renderTaskRow(t imgapi.Task, followed bool) string {
	styles := m.theme.Styles()
	status := t.State()

	var b strings.Builder
	b.WriteString(styles.StatusStyle(string(status)).Render(padRight(string(status), 10)))
	b.WriteString(" ")
	b.WriteString(styles.Text.Render(padRight(shortID(t.ID), 8)))
	b.WriteString(" ")

	if status.Active() || followed {
		b.WriteString(m.progress.ViewAs(t.Percent() / 100))
		b.WriteString(styles.MutedText.Render(fmt.Sprintf(" %3.0f%%", t.Percent())))
		if followed && m.poller.Active(t.ID) {
			b.WriteString(" ")
			b.WriteString(m.spinner.View())
		}
		b.WriteString(" ")
	}

	detail := t.Message
	if status == imgapi.StatusFailed && t.Error != "" {
		detail = t.Error
	}
	if t.TotalFiles > 0 {
		detail = fmt.Sprintf("%s (%d files)", detail, t.TotalFiles)
	}
	if created := t.ParsedCreatedAt(); !created.IsZero() {
		detail = strings.TrimSpace(detail + "  " + humanize.Time(created))
	}
	return b.String() + styles.MutedText.Render(truncate(detail, maxInt(10, m.width-60)))
}
