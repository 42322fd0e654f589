package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/lumen/internal/imgapi"
	"github.com/five82/lumen/internal/opguard"
)

type opDoneMsg struct {
	value any
	err   error
}

// opModel shows a spinner while one request runs and notes when the request
// passes 75% of its budget.
type opModel struct {
	label   string
	kind    imgapi.Kind
	budget  time.Duration
	call    func() tea.Msg
	spinner spinner.Model
	guard   *opguard.Guard
	warned  bool
	done    bool
	result  opDoneMsg
}

func newOpModel(label string, kind imgapi.Kind, budget time.Duration, call func() tea.Msg, opts ...opguard.Option) opModel {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	return opModel{
		label:   label,
		kind:    kind,
		budget:  budget,
		call:    call,
		spinner: sp,
		guard:   opguard.New(label, opts...),
	}
}

func (m opModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.guard.Activate(m.kind, m.budget), m.call)
}

func (m opModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case opguard.TickMsg:
		return m, m.guard.Update(msg)
	case opguard.WarningMsg:
		m.warned = true
		return m, nil
	case opDoneMsg:
		m.guard.Deactivate()
		m.done = true
		m.result = msg
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m opModel) View() string {
	if m.done {
		return ""
	}
	op := m.guard.Operation()
	line := fmt.Sprintf("%s %s %s", m.spinner.View(), m.label, mutedStyle.Render(op.Elapsed.Round(time.Second).String()))
	if m.warned {
		line += warnStyle.Render(fmt.Sprintf("  still working, gives up after %s", m.budget))
	}
	return line + "\n"
}

// runOp runs fn under a spinner and returns its result.
func runOp[T any](ctx context.Context, label string, kind imgapi.Kind, budget time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	call := func() tea.Msg {
		v, err := fn(ctx)
		return opDoneMsg{value: v, err: err}
	}
	p := tea.NewProgram(newOpModel(label, kind, budget, call),
		tea.WithContext(ctx), tea.WithInput(nil), tea.WithOutput(os.Stderr))
	final, err := p.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, err
	}
	res := final.(opModel).result
	if res.err != nil {
		return zero, res.err
	}
	v, _ := res.value.(T)
	return v, nil
}
