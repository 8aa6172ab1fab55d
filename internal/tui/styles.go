package tui

import "github.com/charmbracelet/lipgloss"

var (
	purple = lipgloss.Color("#7D56F4")
	green  = lipgloss.Color("#04B575")
	red    = lipgloss.Color("#ED567A")
	amber  = lipgloss.Color("#F2B134")
	gray   = lipgloss.Color("#626262")
	white  = lipgloss.Color("#FAFAFA")

	styleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(white).
			Background(purple).
			Padding(0, 1).
			MarginBottom(1)

	styleSectionTitle = lipgloss.NewStyle().
				Bold(true).
				Foreground(purple).
				MarginTop(1).
				MarginBottom(1)

	styleBadge = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 2).
			Border(lipgloss.RoundedBorder())

	styleRunning = styleBadge.
			Foreground(green).
			BorderForeground(green)

	stylePaused = styleBadge.
			Foreground(amber).
			BorderForeground(amber)

	styleSidebar = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(gray).
			PaddingLeft(2).
			MarginLeft(2).
			Width(30)

	styleYou     = lipgloss.NewStyle().Foreground(gray)
	styleFlora   = lipgloss.NewStyle().Foreground(white)
	styleIgnored = lipgloss.NewStyle().Foreground(gray).Italic(true)
	styleError   = lipgloss.NewStyle().Foreground(red)

	styleFooter = lipgloss.NewStyle().
			Foreground(gray).
			MarginTop(1)
)
