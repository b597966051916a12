package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/axefleet/axectl/internal/api"
	"github.com/axefleet/axectl/internal/discovery"
	"github.com/axefleet/axectl/internal/monitor"
)

// Format selects the rendering mode for command output
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat validates a --format flag value
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatText, "":
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (expected text or json)", s)
	}
}

// Renderer writes command output in the selected format.
// When NoColor is set (or stdout is not a terminal) styles collapse to plain text.
type Renderer struct {
	Out     io.Writer
	Format  Format
	NoColor bool
}

// NewRenderer builds a renderer for the given writer and format.
// Color is enabled only for terminal output.
func NewRenderer(out io.Writer, format Format, noColor bool) *Renderer {
	return &Renderer{
		Out:     out,
		Format:  format,
		NoColor: noColor || !IsTerminal(),
	}
}

func (r *Renderer) style(s lipgloss.Style, text string) string {
	if r.NoColor {
		return text
	}
	return s.Render(text)
}

// JSON marshals v with indentation to the output writer
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Infof prints a plain informational line
func (r *Renderer) Infof(format string, args ...any) {
	fmt.Fprintf(r.Out, format+"\n", args...)
}

// Successf prints a green checkmarked line
func (r *Renderer) Successf(format string, args ...any) {
	fmt.Fprintf(r.Out, "%s %s\n", r.style(SuccessStyle, SuccessMarker), fmt.Sprintf(format, args...))
}

// Warningf prints an orange warning line
func (r *Renderer) Warningf(format string, args ...any) {
	fmt.Fprintf(r.Out, "%s\n", r.style(WarningStyle, fmt.Sprintf(format, args...)))
}

// Errorf prints a red error line
func (r *Renderer) Errorf(format string, args ...any) {
	fmt.Fprintf(r.Out, "%s %s\n", r.style(ErrorStyle, FailureMarker), fmt.Sprintf(format, args...))
}

// Hint prints a muted troubleshooting hint under an error
func (r *Renderer) Hint(hint string) {
	if hint == "" {
		return
	}
	fmt.Fprintf(r.Out, "  %s\n", r.style(HintStyle, hint))
}

// temperature colors a temperature cell by severity
func (r *Renderer) temperature(celsius float64) string {
	text := FormatTemperature(celsius)
	switch {
	case celsius >= TempHotThreshold:
		return r.style(ErrorStyle, text)
	case celsius >= TempWarnThreshold:
		return r.style(WarningStyle, text)
	default:
		return text
	}
}

func (r *Renderer) status(s api.DeviceStatus) string {
	switch s {
	case api.StatusOnline:
		return r.style(OnlineStyle, string(s))
	case api.StatusOffline, api.StatusError:
		return r.style(OfflineStyle, string(s))
	default:
		return string(s)
	}
}

// Devices renders a device table (or JSON array) sorted by IP
func (r *Renderer) Devices(devices []*api.Device) error {
	sorted := make([]*api.Device, len(devices))
	copy(sorted, devices)
	sort.Slice(sorted, func(i, j int) bool { return api.LessIP(sorted[i].IP, sorted[j].IP) })

	if r.Format == FormatJSON {
		return r.JSON(sorted)
	}

	if len(sorted) == 0 {
		r.Infof("No devices found. Run 'axectl discover' to scan the network.")
		return nil
	}

	tw := newTable(r.Out)
	tw.header(r, "IP", "HOSTNAME", "TYPE", "STATUS", "HASHRATE", "TEMP", "POWER", "LAST SEEN")
	for _, d := range sorted {
		hashrate, temp, power := "-", "-", "-"
		if d.Stats != nil {
			hashrate = FormatHashrate(d.Stats.Hashrate)
			temp = r.temperature(d.Stats.Temperature)
			power = FormatPower(d.Stats.Power)
		}
		tw.row(
			d.IP,
			d.DisplayName(),
			d.Type.DisplayName(),
			r.status(d.Status),
			hashrate,
			temp,
			power,
			FormatLastSeen(d.LastSeen),
		)
	}
	return tw.flush()
}

// DeviceStats renders the detailed stats view for one device
func (r *Renderer) DeviceStats(d *api.Device) error {
	if r.Format == FormatJSON {
		return r.JSON(d)
	}

	var b strings.Builder
	b.WriteString(r.style(TitleStyle, fmt.Sprintf("=== %s (%s) ===", d.DisplayName(), d.IP)))
	b.WriteString("\n")

	writeField := func(key, value string) {
		b.WriteString(fmt.Sprintf("  %-16s %s\n", r.style(MutedStyle, key), value))
	}

	writeField("Type:", d.Type.DisplayName())
	writeField("Status:", r.status(d.Status))
	if d.FirmwareVersion != "" {
		writeField("Firmware:", d.FirmwareVersion)
	}
	if d.BoardVersion != "" {
		writeField("Board:", d.BoardVersion)
	}
	if d.MACAddr != "" {
		writeField("MAC:", d.MACAddr)
	}
	writeField("Last seen:", FormatLastSeen(d.LastSeen))

	if s := d.Stats; s != nil {
		b.WriteString("\n")
		b.WriteString(r.style(TitleStyle, "=== Mining ==="))
		b.WriteString("\n")
		writeField("Hashrate:", FormatHashrate(s.Hashrate))
		writeField("Temperature:", r.temperature(s.Temperature))
		writeField("Power:", FormatPower(s.Power))
		if s.Voltage > 0 {
			writeField("Voltage:", fmt.Sprintf("%.2f V", s.Voltage/1000))
		}
		if s.Frequency > 0 {
			writeField("Frequency:", fmt.Sprintf("%d MHz", s.Frequency))
		}
		writeField("Fan:", fmt.Sprintf("%d%% (%d RPM)", s.FanSpeedPct, s.FanRPM))
		writeField("Shares:", FormatShares(s.SharesAccepted, s.SharesRejected))
		if s.BestDiff != "" {
			writeField("Best diff:", s.BestDiff)
		}
		if s.PoolURL != "" {
			writeField("Pool:", s.PoolURL)
		}
		writeField("Uptime:", FormatUptime(s.UptimeSeconds))
		if s.WifiRSSI != 0 {
			writeField("WiFi RSSI:", fmt.Sprintf("%d dBm", s.WifiRSSI))
		}
	}

	_, err := fmt.Fprint(r.Out, b.String())
	return err
}

// Summary renders the swarm totals line and per-type breakdown
func (r *Renderer) Summary(devices []*api.Device) error {
	summary := api.Summarize(devices)
	if r.Format == FormatJSON {
		return r.JSON(struct {
			Swarm  api.SwarmSummary  `json:"swarm"`
			ByType []api.TypeSummary `json:"by_type"`
		}{summary, api.SummarizeByType(devices)})
	}

	var b strings.Builder
	b.WriteString(r.style(TitleStyle, "=== Summary ==="))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %d device(s), %d online, %d offline\n",
		summary.TotalDevices, summary.OnlineDevices, summary.TotalDevices-summary.OnlineDevices))
	b.WriteString(fmt.Sprintf("  Total hashrate: %s\n", FormatHashrate(summary.TotalHashrate)))
	if summary.TotalPower > 0 {
		b.WriteString(fmt.Sprintf("  Total power:    %s\n", FormatPower(summary.TotalPower)))
	}
	if summary.AvgTemperature > 0 {
		b.WriteString(fmt.Sprintf("  Avg temp:       %s\n", r.temperature(summary.AvgTemperature)))
	}

	for _, ts := range api.SummarizeByType(devices) {
		b.WriteString(fmt.Sprintf("  %-16s %d device(s), %s\n",
			ts.Type.DisplayName()+":", ts.Count, FormatHashrate(ts.TotalHashrate)))
	}

	_, err := fmt.Fprint(r.Out, b.String())
	return err
}

// Discovery renders a discovery result: the device table plus stage counters
func (r *Renderer) Discovery(devices []*api.Device, info discovery.Info) error {
	if r.Format == FormatJSON {
		return r.JSON(struct {
			Devices []*api.Device  `json:"devices"`
			Info    discovery.Info `json:"info"`
		}{devices, info})
	}

	if err := r.Devices(devices); err != nil {
		return err
	}
	r.Infof("")
	r.Successf("Found %d device(s) in %s", len(devices), info.Duration.Round(time.Millisecond))
	details := fmt.Sprintf("network %s, %d address(es) scanned", info.Range, info.Scan.AddressesScanned)
	if info.MdnsFound > 0 {
		details += fmt.Sprintf(", %d via mDNS", info.MdnsFound)
	}
	if info.QuickFound > 0 {
		details += fmt.Sprintf(", %d from cache", info.QuickFound)
	}
	fmt.Fprintf(r.Out, "  %s\n", r.style(MutedStyle, details))
	return nil
}

// Alert renders a single monitor alert line
func (r *Renderer) Alert(a monitor.Alert) {
	marker := r.style(WarningStyle, AlertMarker)
	if a.Kind == monitor.AlertOffline {
		marker = r.style(ErrorStyle, AlertMarker)
	}
	fmt.Fprintf(r.Out, "%s [%s] %s\n", marker, a.Timestamp.Format("15:04:05"), a.Message)
}

// table is a minimal column-aligned writer for device listings
type table struct {
	out  io.Writer
	rows [][]string
	// widths tracks the widest visible cell per column; styled cells
	// measure their printable width, not byte length
	widths []int
}

func newTable(out io.Writer) *table {
	return &table{out: out}
}

func (t *table) header(r *Renderer, cols ...string) {
	styled := make([]string, len(cols))
	for i, c := range cols {
		styled[i] = r.style(HeaderStyle, c)
	}
	t.row(styled...)
}

func (t *table) row(cells ...string) {
	for len(t.widths) < len(cells) {
		t.widths = append(t.widths, 0)
	}
	for i, c := range cells {
		if w := lipgloss.Width(c); w > t.widths[i] {
			t.widths[i] = w
		}
	}
	t.rows = append(t.rows, cells)
}

func (t *table) flush() error {
	var b strings.Builder
	for _, row := range t.rows {
		for i, cell := range row {
			b.WriteString(cell)
			if i < len(row)-1 {
				pad := t.widths[i] - lipgloss.Width(cell) + 2
				b.WriteString(strings.Repeat(" ", pad))
			}
		}
		b.WriteString("\n")
	}
	_, err := fmt.Fprint(t.out, b.String())
	return err
}
