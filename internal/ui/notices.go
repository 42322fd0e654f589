package ui

import (
	"log"
	"time"

	"github.com/charmbracelet/lipgloss"
)

type noticeLevel int

const (
	noticeInfo noticeLevel = iota
	noticeWarn
	noticeError
)

// notice is a transient message shown in the bottom bar.
type notice struct {
	level noticeLevel
	text  string
	at    time.Time
}

// notify appends a notice and writes it to the log file.
func (m Model) notify(level noticeLevel, text string) Model {
	if text == "" {
		return m
	}
	if level != noticeInfo {
		log.Printf("ui: %s", text)
	}
	notices := append(m.notices, notice{level: level, text: text, at: time.Now()})
	if len(notices) > MaxNotices {
		notices = notices[len(notices)-MaxNotices:]
	}
	m.notices = notices
	return m
}

// renderNoticeBar shows the most recent notice.
func (m Model) renderNoticeBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	if len(m.notices) == 0 {
		bindings := m.keys.ShortHelp()
		hints := make([]string, 0, len(bindings))
		for _, b := range bindings {
			h := b.Help()
			hints = append(hints, bg.Render(h.Key, styles.AccentText)+bg.Space()+bg.Render(h.Desc, styles.FaintText))
		}
		return styles.Footer.Width(m.width).Render(bg.Join(hints, "  "))
	}

	n := m.notices[len(m.notices)-1]
	style := styles.Text
	switch n.level {
	case noticeWarn:
		style = styles.WarningText
	case noticeError:
		style = styles.DangerText
	}
	text := truncate(n.text, maxInt(10, m.width-12))
	content := bg.Render(n.at.Format("15:04:05"), styles.FaintText) + bg.Spaces(2) + bg.Render(text, style)
	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Padding(0, 1).
		Width(m.width).
		Render(content)
}
