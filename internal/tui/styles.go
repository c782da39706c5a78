package tui

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor   = lipgloss.Color("#A78BFA") // violet-400
	secondaryColor = lipgloss.Color("#10B981") // green
	warningColor   = lipgloss.Color("#F59E0B") // amber
	errorColor     = lipgloss.Color("#F87171") // red-400
	mutedColor     = lipgloss.Color("#9CA3AF") // gray
	blueColor      = lipgloss.Color("#60A5FA")
	borderColor    = lipgloss.Color("#6B7280")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(11)

	valueStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(mutedColor)
	helpStyle  = lipgloss.NewStyle().Foreground(mutedColor).Italic(true)

	okStyle      = lipgloss.NewStyle().Foreground(secondaryColor)
	infoStyle    = lipgloss.NewStyle().Foreground(blueColor)
	warningStyle = lipgloss.NewStyle().Foreground(warningColor)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
)
