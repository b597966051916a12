package output

import (
	"fmt"
	"time"
)

// Temperature severity thresholds for display coloring
const (
	TempWarnThreshold = 70.0
	TempHotThreshold  = 80.0
)

// FormatHashrate renders a GH/s value in the most readable unit
func FormatHashrate(ghs float64) string {
	switch {
	case ghs <= 0:
		return "0 H/s"
	case ghs < 1:
		return fmt.Sprintf("%.1f MH/s", ghs*1000)
	case ghs < 1000:
		return fmt.Sprintf("%.1f GH/s", ghs)
	default:
		return fmt.Sprintf("%.2f TH/s", ghs/1000)
	}
}

// FormatPower renders a wattage reading
func FormatPower(watts float64) string {
	if watts <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f W", watts)
}

// FormatTemperature renders a temperature reading
func FormatTemperature(celsius float64) string {
	if celsius <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f°C", celsius)
}

// FormatUptime renders seconds as a compact d/h/m string
func FormatUptime(seconds int64) string {
	if seconds <= 0 {
		return "-"
	}
	d := time.Duration(seconds) * time.Second
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

// FormatLastSeen renders how long ago a timestamp was
func FormatLastSeen(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	elapsed := time.Since(t)
	switch {
	case elapsed < time.Minute:
		return "just now"
	case elapsed < time.Hour:
		return fmt.Sprintf("%dm ago", int(elapsed.Minutes()))
	case elapsed < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(elapsed.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(elapsed.Hours())/24)
	}
}

// FormatShares renders accepted/rejected share counters
func FormatShares(accepted, rejected int64) string {
	return fmt.Sprintf("%d/%d", accepted, rejected)
}
