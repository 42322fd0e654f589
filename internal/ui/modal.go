package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Modal is the interface for modal dialogs.
// The Update method returns the updated modal, a command, and a bool indicating if the modal should close.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(theme Theme, width, height int) string
}

// promptKind identifies what a prompt's value is used for.
type promptKind int

const (
	promptSearch promptKind = iota
	promptFilter
	promptProcess
	promptScan
	promptUpload
)

// promptResultMsg carries a submitted prompt value back to the model.
type promptResultMsg struct {
	kind  promptKind
	value string
}

// promptModal is a single-line text prompt.
type promptModal struct {
	kind  promptKind
	title string
	hint  string
	input textinput.Model
}

func newPrompt(kind promptKind, initial string) *promptModal {
	input := textinput.New()
	input.CharLimit = 1024
	input.Width = 48
	input.SetValue(initial)
	input.CursorEnd()
	input.Cursor.SetMode(cursor.CursorStatic)
	input.Focus()

	p := &promptModal{kind: kind, input: input}
	switch kind {
	case promptSearch:
		p.title = "Search images"
		p.hint = "describe what you are looking for; empty lists everything"
		input.Placeholder = "a cat sleeping on a sofa"
	case promptFilter:
		p.title = "Filter by objects"
		p.hint = "comma separated, e.g. cat,sofa; empty removes the filter"
	case promptProcess:
		p.title = "Process directory"
		p.hint = "path [-r recursive] [-f force reprocess]"
	case promptScan:
		p.title = "Scan directory"
		p.hint = "path [-r recursive]"
	case promptUpload:
		p.title = "Upload image"
		p.hint = "file path [-n do not process] [-o overwrite]"
	}
	p.input = input
	return p
}

func (p *promptModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(k, keys.Confirm):
			result := promptResultMsg{kind: p.kind, value: strings.TrimSpace(p.input.Value())}
			return p, func() tea.Msg { return result }, true
		case k.Type == tea.KeyEsc, k.Type == tea.KeyCtrlC:
			return p, nil, true
		}
	}
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return p, cmd, false
}

func (p *promptModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()

	var b strings.Builder
	b.WriteString(styles.AccentText.Bold(true).Render(p.title))
	b.WriteString("\n\n")
	b.WriteString(p.input.View())
	b.WriteString("\n\n")
	b.WriteString(styles.FaintText.Render(p.hint))
	b.WriteString("\n")
	b.WriteString(styles.MutedText.Render("enter confirm · esc cancel"))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.BorderFocus)).
		Padding(1, 2).
		Width(60)

	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		box.Render(b.String()),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(theme.Background)),
	)
}
