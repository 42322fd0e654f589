package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/lumen/internal/imgapi"
	"github.com/five82/lumen/internal/tasks"
)

type waitUpdateMsg struct{ task imgapi.Task }
type waitDoneMsg struct{ task imgapi.Task }
type waitErrMsg struct{ err error }

// waitModel follows one server task until it completes or fails.
type waitModel struct {
	id       string
	label    string
	interval time.Duration
	poller   *tasks.Poller
	progress progress.Model
	task     imgapi.Task
	lastErr  error
	done     bool
}

func newWaitModel(ctx context.Context, fetcher tasks.Fetcher, id, label string, interval time.Duration) waitModel {
	return waitModel{
		id:       id,
		label:    label,
		interval: interval,
		poller:   tasks.NewPoller(ctx, fetcher),
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
		task:     imgapi.Task{ID: id, Status: string(imgapi.StatusQueued)},
	}
}

func (m waitModel) Init() tea.Cmd {
	_, cmd := m.poller.Start(m.id, m.interval, tasks.Handlers{
		OnUpdate: func(t imgapi.Task) tea.Cmd {
			return func() tea.Msg { return waitUpdateMsg{task: t} }
		},
		OnComplete: func(t imgapi.Task) tea.Cmd {
			return func() tea.Msg { return waitDoneMsg{task: t} }
		},
		OnFailed: func(t imgapi.Task) tea.Cmd {
			return func() tea.Msg { return waitDoneMsg{task: t} }
		},
		OnError: func(_ string, err error) tea.Cmd {
			return func() tea.Msg { return waitErrMsg{err: err} }
		},
	})
	return cmd
}

func (m waitModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := m.poller.Update(msg)
	switch msg := msg.(type) {
	case waitUpdateMsg:
		m.task = msg.task
		m.lastErr = nil
	case waitDoneMsg:
		m.task = msg.task
		m.done = true
		return m, tea.Quit
	case waitErrMsg:
		m.lastErr = msg.err
	}
	return m, cmd
}

func (m waitModel) View() string {
	if m.done {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.label)
	b.WriteString("  ")
	b.WriteString(m.progress.ViewAs(m.task.Percent() / 100))
	b.WriteString(fmt.Sprintf(" %3.0f%%", m.task.Percent()))
	if msg := m.task.Message; msg != "" {
		b.WriteString(mutedStyle.Render("  " + msg))
	}
	if m.lastErr != nil {
		b.WriteString(warnStyle.Render("  " + imgapi.UserMessage(m.lastErr) + ", retrying"))
	}
	b.WriteString("\n")
	return b.String()
}

// waitForTask blocks until the task reaches a terminal state.
func waitForTask(ctx context.Context, fetcher tasks.Fetcher, id, label string, interval time.Duration) (imgapi.Task, error) {
	m := newWaitModel(ctx, fetcher, id, label, interval)
	defer m.poller.StopAll()

	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithInput(nil), tea.WithOutput(os.Stderr))
	final, err := p.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return imgapi.Task{}, ctx.Err()
		}
		return imgapi.Task{}, err
	}
	return final.(waitModel).task, nil
}
