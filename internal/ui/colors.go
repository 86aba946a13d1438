package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/albumranker/internal/models"
)

var (
	darkStyles  = NewPalette("#1DB954", "#04B575", "#FF5555", "#FFA500", "#626262")
	lightStyles = NewPalette("#1A7A3E", "#027A50", "#CC0000", "#B06D00", "#8A8A8A")
)

// PaletteFor returns the stylesheet matching a user's color scheme preference.
func PaletteFor(scheme string) *Palette {
	if scheme == models.ColorSchemeLight {
		return lightStyles
	}
	return darkStyles
}

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title  lipgloss.Style
	ok     lipgloss.Style
	err    lipgloss.Style
	warn   lipgloss.Style
	help   lipgloss.Style
	cursor lipgloss.Style
	hidden lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title:  NewBold(t).MarginBottom(1),
		ok:     NewBold(s),
		err:    NewBold(e),
		warn:   NewStyle(w),
		help:   NewEm(h),
		cursor: NewBold(t),
		hidden: NewEm(h).Strikethrough(true),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
