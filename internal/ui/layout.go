package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which the detail pane is hidden.
	LayoutCompactWidth = 100

	// LayoutWideWidth is the minimum width to show the objects column.
	LayoutWideWidth = 130
)

const (
	// DefaultUIInterval is how often the model re-reads the health store.
	DefaultUIInterval = time.Second

	// LogTailLines is how many log lines the log view keeps.
	LogTailLines = 500

	// MaxNotices bounds the notice history.
	MaxNotices = 50

	// detailPaneRatio is the share of the width given to the detail pane.
	detailPaneRatio = 0.4
)
