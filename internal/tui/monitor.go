package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/axefleet/axectl/internal/api"
	"github.com/axefleet/axectl/internal/monitor"
	"github.com/axefleet/axectl/internal/output"
)

// EventMsg carries one monitor tick snapshot into the TUI.
// The monitor engine's OnTick callback forwards events with Program.Send.
type EventMsg struct {
	Event monitor.Event
}

// maxVisibleAlerts bounds the alerts pane height
const maxVisibleAlerts = 5

// monitorKeyMap defines key bindings for the monitor screen
type monitorKeyMap struct {
	ToggleAlerts key.Binding
	ClearAlerts  key.Binding
	Quit         key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k monitorKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.ToggleAlerts, k.ClearAlerts, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k monitorKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.ToggleAlerts, k.ClearAlerts, k.Quit},
	}
}

// MonitorModel renders the live fleet view driven by monitor engine events
type MonitorModel struct {
	// Network label shown in the header (e.g. "192.168.1.0/24")
	Network string
	// Interval between ticks, shown in the header
	Interval time.Duration

	// Latest tick snapshot
	event    monitor.Event
	received bool

	// Rolling alert pane contents
	alerts     []monitor.Alert
	showAlerts bool

	// UI state
	Width   int
	Height  int
	spinner spinner.Model
	help    help.Model
	keys    monitorKeyMap
	quit    bool
}

// NewMonitorModel creates the live monitor view
func NewMonitorModel(network string, interval time.Duration) MonitorModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	keys := monitorKeyMap{
		ToggleAlerts: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "alerts"),
		),
		ClearAlerts: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear alerts"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}

	return MonitorModel{
		Network:    network,
		Interval:   interval,
		showAlerts: true,
		spinner:    s,
		help:       help.New(),
		keys:       keys,
	}
}

// Init starts the spinner
func (m MonitorModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles key presses, window resizes, and monitor events
func (m MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quit = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.ToggleAlerts):
			m.showAlerts = !m.showAlerts
			return m, nil
		case key.Matches(msg, m.keys.ClearAlerts):
			m.alerts = nil
			return m, nil
		}

	case EventMsg:
		m.event = msg.Event
		m.received = true
		m.alerts = append(m.alerts, msg.Event.NewAlerts...)
		if len(m.alerts) > monitor.MaxAlertHistory {
			m.alerts = m.alerts[len(m.alerts)-monitor.MaxAlertHistory:]
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the full monitor screen
func (m MonitorModel) View() string {
	if m.quit {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	if !m.received {
		b.WriteString(fmt.Sprintf("%s Waiting for first poll...\n", m.spinner.View()))
	} else {
		b.WriteString(m.renderDeviceTable())
		b.WriteString("\n")
		b.WriteString(m.renderSummary())
		if m.showAlerts {
			b.WriteString("\n")
			b.WriteString(m.renderAlerts())
		}
	}

	b.WriteString(HelpStyle.Render(m.help.View(m.keys)))
	b.WriteString("\n")

	return b.String()
}

func (m MonitorModel) renderHeader() string {
	title := TitleStyle.Render(AppName)

	detail := fmt.Sprintf("network %s · every %s", m.Network, m.Interval)
	if m.event.DiscoveryActive {
		detail += fmt.Sprintf(" · %s discovering", m.spinner.View())
	} else if !m.event.LastDiscovery.IsZero() {
		detail += fmt.Sprintf(" · last discovery %s", output.FormatLastSeen(m.event.LastDiscovery))
	}

	return title + "\n" + SubtitleStyle.Render(detail)
}

func (m MonitorModel) renderDeviceTable() string {
	devices := make([]*api.Device, len(m.event.Devices))
	copy(devices, m.event.Devices)
	sort.Slice(devices, func(i, j int) bool { return api.LessIP(devices[i].IP, devices[j].IP) })

	if len(devices) == 0 {
		return SubtleStyle.Render("  No devices yet. Background discovery will add them as they appear.") + "\n"
	}

	var b strings.Builder
	header := fmt.Sprintf("  %-15s %-18s %-13s %-8s %-12s %-8s %-8s",
		"IP", "HOSTNAME", "TYPE", "STATUS", "HASHRATE", "TEMP", "POWER")
	b.WriteString(TableHeaderStyle.Render(header))
	b.WriteString("\n")

	for _, d := range devices {
		status := OnlineStyle.Render(string(d.Status))
		if !d.IsOnline() {
			status = OfflineStyle.Render(string(d.Status))
		}

		hashrate, temp, power := "-", "-", "-"
		if d.Stats != nil {
			hashrate = output.FormatHashrate(d.Stats.Hashrate)
			temp = m.renderTemp(d.Stats.Temperature)
			power = output.FormatPower(d.Stats.Power)
		}

		b.WriteString(fmt.Sprintf("  %-15s %-18s %-13s %s %s %s %s\n",
			d.IP,
			truncate(d.DisplayName(), 18),
			truncate(d.Type.DisplayName(), 13),
			padStyled(status, 8),
			padStyled(hashrate, 12),
			padStyled(temp, 8),
			padStyled(power, 8),
		))
	}
	return b.String()
}

func (m MonitorModel) renderTemp(celsius float64) string {
	text := output.FormatTemperature(celsius)
	switch {
	case celsius >= output.TempHotThreshold:
		return TempHotStyle.Render(text)
	case celsius >= output.TempWarnThreshold:
		return TempWarnStyle.Render(text)
	default:
		return text
	}
}

func (m MonitorModel) renderSummary() string {
	s := api.Summarize(m.event.Devices)
	line := fmt.Sprintf("  %d device(s) · %d online · %s total",
		s.TotalDevices, s.OnlineDevices, output.FormatHashrate(s.TotalHashrate))
	if s.TotalPower > 0 {
		line += fmt.Sprintf(" · %s", output.FormatPower(s.TotalPower))
	}
	return SummaryStyle.Render(line) + "\n"
}

func (m MonitorModel) renderAlerts() string {
	if len(m.alerts) == 0 {
		return SubtleStyle.Render("  No alerts") + "\n"
	}

	// Newest alerts at the bottom, capped to the pane height
	visible := m.alerts
	if len(visible) > maxVisibleAlerts {
		visible = visible[len(visible)-maxVisibleAlerts:]
	}

	var b strings.Builder
	b.WriteString(TableHeaderStyle.Render(fmt.Sprintf("  Alerts (%d total)", m.event.AlertCount)))
	b.WriteString("\n")
	for _, a := range visible {
		style := AlertStyle
		if a.Kind == monitor.AlertOffline {
			style = OfflineAlertStyle
		}
		b.WriteString(fmt.Sprintf("  %s %s\n",
			SubtleStyle.Render(a.Timestamp.Format("15:04:05")),
			style.Render(a.Message)))
	}
	return AlertBoxStyle.Render(strings.TrimRight(b.String(), "\n")) + "\n"
}

// truncate cuts a string to width, appending an ellipsis when cut
func truncate(s string, width int) string {
	if len(s) <= width {
		return s
	}
	if width <= 1 {
		return s[:width]
	}
	return s[:width-1] + "…"
}

// padStyled right-pads a styled cell to a visible width. Styled strings
// carry escape sequences, so padding must use the printable width.
func padStyled(s string, width int) string {
	pad := width - lipgloss.Width(s)
	if pad < 0 {
		pad = 0
	}
	return s + strings.Repeat(" ", pad)
}
