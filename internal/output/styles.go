package output

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Color palette for device tables and status lines
var (
	PrimaryColor = lipgloss.Color("#7D56F4") // Purple - headers, borders
	SuccessColor = lipgloss.Color("#43BF6D") // Green - online, success
	ErrorColor   = lipgloss.Color("#FF5555") // Red - offline, errors, hot temps
	WarningColor = lipgloss.Color("#FFA500") // Orange - warnings, warm temps
	MutedColor   = lipgloss.Color("#626262") // Gray - secondary info
	TextColor    = lipgloss.Color("#FFFFFF") // White - main content
)

// Layout constants
const (
	MinTerminalWidth = 60  // Minimum supported terminal width
	MaxContentWidth  = 120 // Maximum content width before capping
)

// Shared styles
var (
	// HeaderStyle is for table column headers
	HeaderStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	// TitleStyle is for section titles (e.g., "Devices", "Summary")
	TitleStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Bold(true)

	// OnlineStyle is for online device status
	OnlineStyle = lipgloss.NewStyle().
			Foreground(SuccessColor)

	// OfflineStyle is for offline device status
	OfflineStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	// MutedStyle is for secondary detail text
	MutedStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	// SuccessStyle is for success messages
	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor)

	// WarningStyle is for warning messages and warm temperatures
	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	// ErrorStyle is for error messages and hot temperatures
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	// HintStyle is for troubleshooting hints under errors
	HintStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Italic(true)
)

// Status markers
const (
	SuccessMarker = "✓"
	FailureMarker = "✗"
	AlertMarker   = "!"
)

// IsTerminal reports whether stdout is attached to a terminal.
// Non-terminal output (pipes, redirects) disables color automatically.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// GetTerminalWidth returns the current terminal width, with fallback
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < MinTerminalWidth {
		return MinTerminalWidth
	}
	if width > MaxContentWidth {
		return MaxContentWidth
	}
	return width
}
