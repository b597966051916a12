// Package tui implements the live fleet monitor view.
//
// The view is a single bubbletea model fed by the monitor engine: the
// engine's per-tick callback forwards each Event into the program with
// Program.Send, and the model renders the device table, swarm summary,
// and a rolling alerts pane from the latest snapshot. The TUI never
// polls devices itself and holds no monitoring state beyond the last
// event received.
package tui
