package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/axefleet/axectl/internal/version"
)

// Application branding constants
const (
	AppName   = "AXECTL FLEET MONITOR"
	GitHubURL = "github.com/axefleet/axectl"
)

// AppVersion returns the application version from the centralized version package
func AppVersion() string {
	return version.Version
}

// Layout constants for responsive terminal width
const (
	MinTerminalWidth = 72  // Minimum supported terminal width
	MaxContentWidth  = 120 // Maximum content width before capping
)

// Color palette
var (
	PrimaryColor   = lipgloss.Color("#7D56F4") // Purple
	SecondaryColor = lipgloss.Color("#43BF6D") // Green
	WarningColor   = lipgloss.Color("#FFA500") // Orange
	ErrorColor     = lipgloss.Color("#FF5555") // Red

	TextColor   = lipgloss.Color("#FFFFFF") // White
	SubtleColor = lipgloss.Color("#626262") // Gray
	BorderColor = lipgloss.Color("#7D56F4") // Purple (same as primary)
)

// Common styles
var (
	// Title style for the header bar
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	// Subtitle style for the header's network/interval line
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	// Table header style
	TableHeaderStyle = lipgloss.NewStyle().
				Foreground(PrimaryColor).
				Bold(true)

	// Online device status
	OnlineStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor)

	// Offline device status
	OfflineStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	// Warm temperature style
	TempWarnStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	// Hot temperature style
	TempHotStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	// Alert line style
	AlertStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	// Offline alert line style
	OfflineAlertStyle = lipgloss.NewStyle().
				Foreground(ErrorColor)

	// Summary line style
	SummaryStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Bold(true)

	// Muted detail style
	SubtleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	// Help text style
	HelpStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			PaddingTop(1)

	// Spinner style for discovery-in-progress
	SpinnerStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor)

	// Box style for the alerts pane
	AlertBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(0, 1)
)
