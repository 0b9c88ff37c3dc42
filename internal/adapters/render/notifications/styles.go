package notifications

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title     lipgloss.Style
	header    lipgloss.Style
	unread    lipgloss.Style
	read      lipgloss.Style
	actor     lipgloss.Style
	source    lipgloss.Style
	age       lipgloss.Style
	counter   lipgloss.Style
	empty     lipgloss.Style
	separator lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:     lipgloss.NewStyle().Bold(true),
		header:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		unread:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		read:      lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		actor:     lipgloss.NewStyle().Foreground(lipgloss.Color("75")),
		source:    lipgloss.NewStyle().Foreground(lipgloss.Color("178")),
		age:       lipgloss.NewStyle().Faint(true),
		counter:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		empty:     lipgloss.NewStyle().Faint(true),
		separator: lipgloss.NewStyle().Faint(true),
	}
}
