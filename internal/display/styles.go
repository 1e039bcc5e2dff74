// Package display renders the scanner on a terminal: the camera failure
// panel, detection banners and an interactive status dashboard.
package display

import "github.com/charmbracelet/lipgloss"

var (
	FailureRed = lipgloss.Color("#f5222d")
	White      = lipgloss.Color("#FFFFFF")
	Success    = lipgloss.Color("#4CAF50")
	Standby    = lipgloss.Color("#FFC107")
	Muted      = lipgloss.Color("#90A4AE")
	BorderDark = lipgloss.Color("#30363D")
)

var (
	// ErrorPanelStyle stands in for the preview after a camera failure.
	ErrorPanelStyle = lipgloss.NewStyle().
			Foreground(White).
			Background(FailureRed).
			Bold(true).
			Padding(1, 2).
			Align(lipgloss.Center, lipgloss.Center)

	BannerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Success).
			Padding(0, 1)

	KindStyle = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	PayloadStyle = lipgloss.NewStyle().
			Foreground(White).
			Bold(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(Muted)

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderDark).
			Padding(0, 1)

	streamingStyle = lipgloss.NewStyle().Foreground(Success).Bold(true)
	waitingStyle   = lipgloss.NewStyle().Foreground(Standby).Bold(true)
	failedStyle    = lipgloss.NewStyle().Foreground(FailureRed).Bold(true)
)
