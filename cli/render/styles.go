package render

import "github.com/charmbracelet/lipgloss"

// Color palette.
var (
	primaryColor = lipgloss.Color("#7C3AED") // Purple
	successColor = lipgloss.Color("#10B981") // Green
	warningColor = lipgloss.Color("#F59E0B") // Amber
	errorColor   = lipgloss.Color("#EF4444") // Red
	mutedColor   = lipgloss.Color("#6B7280") // Gray
)

// Styles for table output. Applied only when color is enabled.
var (
	// HeaderStyle for slice-table header cells.
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	// LabelStyle for struct-table labels.
	LabelStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	SuccessStyle = lipgloss.NewStyle().Foreground(successColor)
	WarningStyle = lipgloss.NewStyle().Foreground(warningColor)
	ErrorStyle   = lipgloss.NewStyle().Foreground(errorColor)
	PlainStyle   = lipgloss.NewStyle()
)

// StatusStyle returns a style for a generation status name.
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case "success":
		return SuccessStyle
	case "failure":
		return WarningStyle
	case "exception":
		return ErrorStyle
	default:
		return PlainStyle
	}
}
