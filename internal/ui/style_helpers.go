package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// BgStyle renders bar segments on a solid background. Styling words one at a
// time leaves unstyled gaps at every reset, so spaces are styled too.
type BgStyle struct {
	bg    lipgloss.Color
	space string
}

// NewBgStyle creates a helper for the given background color.
func NewBgStyle(bgColor string) BgStyle {
	bg := lipgloss.Color(bgColor)
	return BgStyle{
		bg:    bg,
		space: lipgloss.NewStyle().Background(bg).Render(" "),
	}
}

// Render applies style with the background to every word and space of text.
func (b BgStyle) Render(text string, style lipgloss.Style) string {
	if text == "" {
		return ""
	}
	styled := style.Background(b.bg)
	if !strings.Contains(text, " ") {
		return styled.Render(text)
	}
	words := strings.Split(text, " ")
	for i, w := range words {
		if w != "" {
			words[i] = styled.Render(w)
		}
	}
	return strings.Join(words, b.space)
}

// Space returns a single styled space.
func (b BgStyle) Space() string { return b.space }

// Spaces returns n styled spaces.
func (b BgStyle) Spaces(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(b.space, n)
}

// Sep returns a styled separator.
func (b BgStyle) Sep(sep string) string {
	return lipgloss.NewStyle().Background(b.bg).Render(sep)
}

// Join joins parts with styled spaces.
func (b BgStyle) Join(parts []string, sep string) string {
	return strings.Join(parts, b.Sep(sep))
}
