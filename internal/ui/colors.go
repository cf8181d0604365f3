package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// level marks the severity of a status line.
type level int

const (
	levelInfo level = iota
	levelOK
	levelWarn
	levelErr
)

var glyphs = map[level]string{
	levelOK:   "✓",
	levelWarn: "!",
	levelErr:  "✗",
}

// YouTube red on dark terminals, a deeper red on light ones.
var accent = lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF0033"}

var styles = newPalette(accent)

// palette holds the styles the TUI renders with. Colors adapt to the
// terminal background.
type palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
	panel lipgloss.Style
}

func newPalette(primary lipgloss.AdaptiveColor) palette {
	muted := lipgloss.AdaptiveColor{Light: "#8A8A8A", Dark: "#626262"}
	return palette{
		title: lipgloss.NewStyle().Foreground(primary).Bold(true).MarginBottom(1),
		ok:    lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#027A48", Dark: "#04B575"}),
		err:   lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#B00020", Dark: "#FF5555"}).Bold(true),
		warn:  lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FFA500"}),
		help:  lipgloss.NewStyle().Foreground(muted).Italic(true),
		panel: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(primary).Padding(1, 2),
	}
}

// status renders msg as a single status line prefixed by the glyph of l.
func (p palette) status(l level, msg string) string {
	if g, ok := glyphs[l]; ok {
		msg = g + " " + msg
	}
	switch l {
	case levelOK:
		return p.ok.Render(msg)
	case levelWarn:
		return p.warn.Render(msg)
	case levelErr:
		return p.err.Render(msg)
	default:
		return p.help.Render(msg)
	}
}
