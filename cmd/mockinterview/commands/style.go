package commands

import "github.com/charmbracelet/lipgloss"

var (
	colorTitle    = lipgloss.Color("33")
	colorQuestion = lipgloss.Color("15")
	colorDim      = lipgloss.Color("244")
	colorWarn     = lipgloss.Color("214")
	colorError    = lipgloss.Color("196")
	colorGood     = lipgloss.Color("42")
)

// stylize applies optional color styling.
func stylize(text string, noColor bool, color lipgloss.Color) string {
	if noColor {
		return text
	}
	return lipgloss.NewStyle().Foreground(color).Render(text)
}

func bold(text string, noColor bool, color lipgloss.Color) string {
	if noColor {
		return text
	}
	return lipgloss.NewStyle().Bold(true).Foreground(color).Render(text)
}
