package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/lumen/internal/browse"
	"github.com/five82/lumen/internal/prefs"
)

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	if m.modal != nil {
		modal, cmd, closed := m.modal.Update(msg, m.keys)
		if closed {
			m.modal = nil
		} else {
			m.modal = modal
		}
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		m.refreshDetail()
		return m, nil
	case key.Matches(msg, m.keys.Tab):
		m.currentView = (m.currentView + 1) % 3
		return m, m.enterView()
	case key.Matches(msg, m.keys.ShiftTab):
		m.currentView = (m.currentView + 2) % 3
		return m, m.enterView()
	case key.Matches(msg, m.keys.ViewResults), key.Matches(msg, m.keys.Escape):
		m.currentView = ViewResults
		return m, nil
	case key.Matches(msg, m.keys.ViewTasks):
		m.currentView = ViewTasks
		return m, nil
	case key.Matches(msg, m.keys.ViewLogs):
		m.currentView = ViewLogs
		return m, m.enterView()

	case key.Matches(msg, m.keys.Process):
		m.modal = newPrompt(promptProcess, "")
		return m, nil
	case key.Matches(msg, m.keys.Scan):
		m.modal = newPrompt(promptScan, "")
		return m, nil
	case key.Matches(msg, m.keys.Upload):
		m.modal = newPrompt(promptUpload, "")
		return m, nil
	case key.Matches(msg, m.keys.Preload):
		return m.submitPreload()
	}

	switch m.currentView {
	case ViewResults:
		return m.handleResultsKey(msg)
	case ViewTasks:
		return m.handleTasksKey(msg)
	case ViewLogs:
		return m.handleLogsKey(msg)
	}
	return m, nil
}

// handleResultsKey processes keyboard input for the results view.
func (m Model) handleResultsKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	st := m.browser.State()
	switch {
	case key.Matches(msg, m.keys.Search):
		m.modal = newPrompt(promptSearch, st.Query)
		return m, nil
	case key.Matches(msg, m.keys.Filter):
		m.modal = newPrompt(promptFilter, strings.Join(st.Objects, ","))
		return m, nil
	case key.Matches(msg, m.keys.Clear):
		m.selectedRow = 0
		return m, m.browser.Clear()
	case key.Matches(msg, m.keys.Refresh):
		return m, m.browser.Refresh()
	case key.Matches(msg, m.keys.ToggleScore):
		m.showScores = !m.showScores
		m.savePrefs()
		return m, nil
	}

	count := m.browser.Len()
	if count == 0 {
		return m, nil
	}
	half := maxInt(1, m.contentHeight()/2)
	switch {
	case key.Matches(msg, m.keys.Down):
		m.selectedRow++
	case key.Matches(msg, m.keys.Up):
		m.selectedRow--
	case key.Matches(msg, m.keys.Top):
		m.selectedRow = 0
	case key.Matches(msg, m.keys.Bottom):
		m.selectedRow = count - 1
	case key.Matches(msg, m.keys.HalfPageDown):
		m.selectedRow += half
	case key.Matches(msg, m.keys.HalfPageUp):
		m.selectedRow -= half
	default:
		return m, nil
	}
	m.clampSelection()
	m.refreshDetail()
	return m, nil
}

// handlePrompt dispatches a submitted prompt.
func (m Model) handlePrompt(msg promptResultMsg) (Model, tea.Cmd) {
	switch msg.kind {
	case promptSearch:
		m.selectedRow = 0
		st := m.browser.State()
		return m, m.browser.Search(msg.value, browse.SearchOptions{Objects: st.Objects})
	case promptFilter:
		m.selectedRow = 0
		return m, m.browser.SetFilter(browse.ParseObjects(msg.value))
	case promptProcess:
		return m.submitProcess(msg.value)
	case promptScan:
		return m.submitScan(msg.value)
	case promptUpload:
		return m.submitUpload(msg.value)
	}
	return m, nil
}

func (m Model) enterView() tea.Cmd {
	if m.currentView == ViewLogs {
		return readLogCmd(m.cfg.LogFile)
	}
	return nil
}

func (m Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	_ = prefs.Save(m.prefsPath, prefs.Prefs{Theme: m.theme.Name, ShowScores: m.showScores})
}

func (m *Model) clampSelection() {
	count := m.browser.Len()
	if m.selectedRow >= count {
		m.selectedRow = count - 1
	}
	if m.selectedRow < 0 {
		m.selectedRow = 0
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
