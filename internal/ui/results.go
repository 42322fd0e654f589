package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/five82/lumen/internal/browse"
)

// detailWidth is the width of the detail pane, zero when it is hidden.
func (m Model) detailWidth() int {
	if m.width < LayoutCompactWidth {
		return 0
	}
	return int(float64(m.width) * detailPaneRatio)
}

// renderResults renders the result list and, on wide terminals, the detail pane.
func (m Model) renderResults() string {
	listWidth := m.width
	if dw := m.detailWidth(); dw > 0 {
		listWidth = m.width - dw - 1
	}
	list := m.renderResultList(listWidth, m.contentHeight())
	if m.detailWidth() == 0 {
		return list
	}

	divider := lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.theme.BorderMuted)).
		Render(strings.TrimSuffix(strings.Repeat("│\n", m.contentHeight()), "\n"))
	return lipgloss.JoinHorizontal(lipgloss.Top, list, divider, m.detailViewport.View())
}

func (m Model) renderResultList(width, height int) string {
	styles := m.theme.Styles()
	st := m.browser.State()

	if len(st.Results) == 0 {
		var msg string
		switch {
		case st.Loading:
			msg = m.spinner.View() + " " + loadingLabel(st)
		case st.Err != nil:
			msg = styles.DangerText.Render("Could not load images.") + " " +
				styles.MutedText.Render("ctrl+r to retry")
		case st.IsSearchMode():
			msg = styles.MutedText.Render("No images match " + fmt.Sprintf("%q", st.Query))
		default:
			msg = styles.MutedText.Render("No processed images yet. Press d to process a directory.")
		}
		return lipgloss.NewStyle().Width(width).Height(height).Padding(1, 2).Render(msg)
	}

	wide := m.width >= LayoutWideWidth
	scoreWidth := 0
	if m.showScores && st.IsSearchMode() {
		scoreWidth = 7
	}
	nameWidth := 28
	objectsWidth := 0
	if wide {
		objectsWidth = 24
	}
	captionWidth := width - nameWidth - objectsWidth - scoreWidth - 6
	if captionWidth < 10 {
		captionWidth = 10
	}

	// Keep the selection visible.
	offset := 0
	if m.selectedRow >= height {
		offset = m.selectedRow - height + 1
	}
	end := offset + height
	if end > len(st.Results) {
		end = len(st.Results)
	}

	lines := make([]string, 0, height)
	for i := offset; i < end; i++ {
		item := st.Results[i]
		var row strings.Builder
		row.WriteString(" ")
		row.WriteString(fit(itemName(item), nameWidth))
		row.WriteString(" ")
		row.WriteString(fit(item.Caption, captionWidth))
		if objectsWidth > 0 {
			row.WriteString(" ")
			row.WriteString(fit(strings.Join(item.Objects, ","), objectsWidth))
		}
		if scoreWidth > 0 {
			row.WriteString(" ")
			row.WriteString(fit(formatScore(item), scoreWidth))
		}

		line := padRight(row.String(), width)
		if i == m.selectedRow {
			lines = append(lines, styles.Selected.Render(line))
		} else {
			lines = append(lines, styles.Text.Render(line))
		}
	}
	return lipgloss.NewStyle().Width(width).Height(height).Render(strings.Join(lines, "\n"))
}

func loadingLabel(st browse.ViewState) string {
	switch st.Mode {
	case browse.ModeSearch:
		return "Searching..."
	case browse.ModeFilter:
		return "Filtering..."
	default:
		return "Loading images..."
	}
}

func itemName(item browse.ResultItem) string {
	if item.Metadata.Filename != "" {
		return item.Metadata.Filename
	}
	if item.Path != "" {
		return item.Path
	}
	return item.ID
}

func formatScore(item browse.ResultItem) string {
	switch {
	case item.Score != nil:
		return fmt.Sprintf("%.3f", *item.Score)
	case item.Distance != nil:
		return fmt.Sprintf("d%.3f", *item.Distance)
	}
	return ""
}

// refreshDetail rebuilds the detail pane for the selected result.
func (m *Model) refreshDetail() {
	if m.detailViewport.Width == 0 {
		return
	}
	item, ok := m.browser.Item(m.selectedRow)
	if !ok {
		m.detailViewport.SetContent("")
		return
	}
	m.detailViewport.SetContent(m.detailContent(item))
	m.detailViewport.GotoTop()
}

func (m Model) detailContent(item browse.ResultItem) string {
	styles := m.theme.Styles()
	width := maxInt(10, m.detailViewport.Width-2)

	var b strings.Builder
	row := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(styles.MutedText.Render(padRight(label, 11)))
		b.WriteString(styles.Text.Render(truncateMiddle(value, width-11)))
		b.WriteString("\n")
	}

	b.WriteString(styles.AccentText.Bold(true).Render(truncate(itemName(item), width)))
	b.WriteString("\n\n")

	if item.Caption != "" {
		b.WriteString(lipgloss.NewStyle().Width(width).Render(styles.Text.Render(item.Caption)))
		b.WriteString("\n\n")
	}

	meta := item.Metadata
	row("Path", item.Path)
	row("ID", item.ID)
	if meta.Width > 0 && meta.Height > 0 {
		row("Size", fmt.Sprintf("%d×%d", meta.Width, meta.Height))
	}
	if meta.FileSize > 0 {
		row("File", humanize.Bytes(uint64(meta.FileSize)))
	}
	row("Format", meta.Format)
	row("Processed", meta.ProcessedAt)
	if m.showScores {
		row("Score", formatScore(item))
	}

	if len(item.Objects) > 0 {
		b.WriteString("\n")
		b.WriteString(styles.MutedText.Render("Objects"))
		b.WriteString("\n")
		for _, o := range item.Objects {
			b.WriteString(styles.StatusStyle("queued").Render(o))
			b.WriteString(" ")
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.MutedText.Render(padRight("Image", 11)))
	b.WriteString(m.thumbnailStatus(item.ID, styles))
	b.WriteString("\n")
	return b.String()
}

func (m Model) thumbnailStatus(id string, styles Styles) string {
	entry, ok := m.thumbs.Entry(id)
	switch {
	case !ok:
		return styles.FaintText.Render("not cached")
	case entry.Loading:
		return m.spinner.View() + styles.MutedText.Render(" downloading")
	case entry.Failed || entry.Handle == nil:
		return styles.DangerText.Render("unavailable")
	}
	h := entry.Handle
	desc := humanize.Bytes(uint64(h.Size))
	if h.Width > 0 && h.Height > 0 {
		desc = fmt.Sprintf("%d×%d %s", h.Width, h.Height, desc)
	}
	return styles.SuccessText.Render("cached") + styles.FaintText.Render(" "+desc+" "+h.URL)
}
