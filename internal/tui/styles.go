package tui

import "github.com/charmbracelet/lipgloss"

const sidebarWidth = 34

type styles struct {
	title       lipgloss.Style
	paneTitle   lipgloss.Style
	activeTitle lipgloss.Style
	cursor      lipgloss.Style
	selected    lipgloss.Style
	item        lipgloss.Style
	muted       lipgloss.Style
	status      lipgloss.Style
	warning     lipgloss.Style
	fatal       lipgloss.Style
	sidebar     lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		title:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1),
		paneTitle:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("8")),
		activeTitle: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13")).Underline(true),
		cursor:      lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true),
		selected:    lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		item:        lipgloss.NewStyle(),
		muted:       lipgloss.NewStyle().Faint(true),
		status:      lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		warning:     lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		fatal:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")).Padding(1, 2),
		sidebar: lipgloss.NewStyle().
			Width(sidebarWidth).
			BorderStyle(lipgloss.NormalBorder()).
			BorderRight(true).
			BorderForeground(lipgloss.Color("8")).
			PaddingRight(1),
	}
}
