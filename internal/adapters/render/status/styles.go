package status

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/yoke233/metting/internal/domain"
)

// 256-color palette.
const (
	colorBlue   = lipgloss.Color("39")
	colorGreen  = lipgloss.Color("114")
	colorYellow = lipgloss.Color("221")
	colorRed    = lipgloss.Color("203")
	colorCyan   = lipgloss.Color("159")
	colorDim    = lipgloss.Color("241")
	colorMuted  = lipgloss.Color("245")
	colorLabel  = lipgloss.Color("250")
	colorText   = lipgloss.Color("252")
	colorTrack  = lipgloss.Color("238")
	colorFrame  = lipgloss.Color("244")
	colorBright = lipgloss.Color("255")
)

type styles struct {
	title   lipgloss.Style
	header  lipgloss.Style
	topic   lipgloss.Style
	detail  lipgloss.Style
	warning lipgloss.Style
	section lipgloss.Style
	empty   lipgloss.Style
	key     lipgloss.Style
	meta    lipgloss.Style
	token   lipgloss.Style

	barBracket lipgloss.Style
	barFill    lipgloss.Style
	barEmpty   lipgloss.Style
}

func fg(color lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(color)
}

func newStyles() styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true).Underline(true),
		header:  fg(colorDim),
		topic:   fg(colorBlue).Bold(true),
		detail:  fg(colorText),
		warning: fg(colorRed).Bold(true),
		section: lipgloss.NewStyle().MarginTop(1),
		empty:   lipgloss.NewStyle().Faint(true).Italic(true),
		key:     fg(colorLabel),
		meta:    fg(colorMuted),
		token:   fg(colorYellow).Bold(true),

		barBracket: fg(colorFrame),
		barFill:    fg(colorCyan),
		barEmpty:   fg(colorTrack),
	}
}

var statusColors = map[domain.RunStatus]lipgloss.Color{
	domain.RunStatusRunning: colorBlue,
	domain.RunStatusPaused:  colorYellow,
	domain.RunStatusDone:    colorGreen,
	domain.RunStatusFailed:  colorRed,
}
