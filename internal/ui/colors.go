package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Colors used by the progress and result views.
const (
	youtubeRed  = "#FF0000"
	spotifyGrn  = "#1DB954"
	missOrange  = "#FFA500"
	mutedGray   = "#626262"
	headerWhite = "#FAFAFA"
)

var styles = newPalette()

// palette is the stylesheet of the TUI and of the CLI summaries, one style per track outcome.
type palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func newPalette() *palette {
	return &palette{
		title: NewBold(headerWhite).Background(lipgloss.Color(youtubeRed)).Padding(0, 1).MarginBottom(1),
		ok:    NewBold(spotifyGrn),
		err:   NewBold(youtubeRed),
		warn:  NewStyle(missOrange),
		help:  NewEm(mutedGray),
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
