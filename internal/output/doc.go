// Package output renders devices, stats, and discovery results as text
// tables or JSON.
//
// Text rendering uses lipgloss styles with color disabled automatically
// when stdout is not a terminal or --no-color is set. Temperature values
// are colored by severity: red at 80°C and above, yellow at 70°C and
// above.
package output
