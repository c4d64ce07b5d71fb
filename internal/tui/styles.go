package tui

import "github.com/charmbracelet/lipgloss"

// Catppuccin Mocha, https://catppuccin.com/palette
const (
	colorMauve    lipgloss.Color = "#cba6f7"
	colorRed      lipgloss.Color = "#f38ba8"
	colorPeach    lipgloss.Color = "#fab387"
	colorYellow   lipgloss.Color = "#f9e2af"
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorSapphire lipgloss.Color = "#74c7ec"
	colorLavender lipgloss.Color = "#b4befe"
	colorOverlay1 lipgloss.Color = "#7f849c"
	colorSurface1 lipgloss.Color = "#45475a"
	colorBase     lipgloss.Color = "#1e1e2e"
)

const (
	colorSuccess = colorGreen
	colorError   = colorRed
	colorWarning = colorYellow
)

// styles
var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(colorLavender)
	helpStyle      = lipgloss.NewStyle().Foreground(colorOverlay1)
	errorStyle     = lipgloss.NewStyle().Foreground(colorError)
	okStyle        = lipgloss.NewStyle().Foreground(colorSuccess)
	warnStyle      = lipgloss.NewStyle().Foreground(colorWarning)
	dimensionStyle = lipgloss.NewStyle().Foreground(colorSapphire)
	gdtStyle       = lipgloss.NewStyle().Foreground(colorMauve)
	highlightStyle = lipgloss.NewStyle().Background(colorPeach).Foreground(colorBase)
	frameStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorSurface1)
)
