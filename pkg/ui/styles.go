package ui

import "github.com/charmbracelet/lipgloss"

var (
	ColorPrimary = lipgloss.Color("#C084FC")
	ColorSuccess = lipgloss.Color("#39FF14")
	ColorDanger  = lipgloss.Color("#FF5555")
	ColorMuted   = lipgloss.Color("#4A5568")
	ColorText    = lipgloss.Color("#E4E4E7")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	ModalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(1, 2)

	CameraStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	CameraSelected = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	StateStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	ResultStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorDanger)

	HelpKey = lipgloss.NewStyle().
		Foreground(ColorPrimary)

	HelpDesc = lipgloss.NewStyle().
			Foreground(ColorMuted)
)
