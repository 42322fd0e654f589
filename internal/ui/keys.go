package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Tab        key.Binding
	ShiftTab   key.Binding
	Escape     key.Binding

	// View switching
	ViewResults key.Binding
	ViewTasks   key.Binding
	ViewLogs    key.Binding

	// Browse actions
	Search      key.Binding
	Filter      key.Binding
	Clear       key.Binding
	Refresh     key.Binding
	ToggleScore key.Binding

	// Server actions
	Process    key.Binding
	Scan       key.Binding
	Upload     key.Binding
	Preload    key.Binding
	CancelPoll key.Binding

	// Navigation
	Up           key.Binding
	Down         key.Binding
	Top          key.Binding
	Bottom       key.Binding
	HalfPageUp   key.Binding
	HalfPageDown key.Binding

	// Prompt
	Confirm key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "e"),
			key.WithHelp("e", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("h", "?"),
			key.WithHelp("h/?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Cycle views"),
		),
		ShiftTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "Cycle views (reverse)"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Back / cancel"),
		),

		ViewResults: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Results"),
		),
		ViewTasks: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "Tasks"),
		),
		ViewLogs: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "Logs"),
		),

		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "Search"),
		),
		Filter: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "Filter by objects"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Clear search"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "Refresh"),
		),
		ToggleScore: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Toggle scores"),
		),

		Process: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "Process directory"),
		),
		Scan: key.NewBinding(
			key.WithKeys("S"),
			key.WithHelp("S", "Scan directory"),
		),
		Upload: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "Upload image"),
		),
		Preload: key.NewBinding(
			key.WithKeys("M"),
			key.WithHelp("M", "Preload models"),
		),
		CancelPoll: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Stop following task"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),
		HalfPageUp: key.NewBinding(
			key.WithKeys("ctrl+u"),
			key.WithHelp("ctrl+u", "Half page up"),
		),
		HalfPageDown: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("ctrl+d", "Half page down"),
		),

		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Confirm"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Search, k.Filter, k.Process, k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ViewResults, k.ViewTasks, k.ViewLogs, k.Escape},
		{k.Up, k.Down, k.Top, k.Bottom, k.HalfPageDown, k.HalfPageUp},
		{k.Search, k.Filter, k.Clear, k.Refresh, k.ToggleScore},
		{k.Process, k.Scan, k.Upload, k.Preload, k.CancelPoll},
		{k.CycleTheme, k.Help, k.Quit},
	}
}
