package styles

import (
	"mcp-local-repo-analyzer/internal/model"

	"github.com/charmbracelet/lipgloss"
)

// Centralized Lip Gloss styles for the inspect dashboard.
// All colors are specified using hex codes.

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ff5fd2")).
			MarginBottom(1).
			PaddingLeft(1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			MarginBottom(1).
			PaddingLeft(1)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff005f")).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00ff5f")).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffaf00")).
			Bold(true)

	NormalTextStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff"))

	MutedTextStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8a8a8a"))

	SectionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#5fd7ff"))

	HelpStyle = lipgloss.NewStyle().
			Faint(true).
			Foreground(lipgloss.Color("#a8a8a8")).
			MarginTop(1).
			Padding(0, 1)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5fd7ff"))

	// Tabs across the top of the dashboard
	TabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8a8a8a")).
			Padding(0, 1)

	ActiveTabStyle = TabStyle.
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(lipgloss.Color("#5f5fff"))

	PaneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5f5fff")).
			PaddingLeft(1).
			PaddingRight(1)
)

// RiskStyle colors a risk level: green, amber or red.
func RiskStyle(level model.RiskLevel) lipgloss.Style {
	switch level {
	case model.RiskHigh:
		return ErrorStyle
	case model.RiskMedium:
		return WarningStyle
	default:
		return SuccessStyle
	}
}

// HealthStyle colors a 0..100 health score using the same bands as its status.
func HealthStyle(score int) lipgloss.Style {
	switch {
	case score >= 75:
		return SuccessStyle
	case score >= 50:
		return WarningStyle
	default:
		return ErrorStyle
	}
}
