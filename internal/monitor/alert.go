package monitor

import (
	"fmt"
	"time"

	"github.com/axefleet/axectl/internal/api"
)

// AlertKind categorizes monitor alerts
type AlertKind string

const (
	AlertTemperature AlertKind = "temperature"
	AlertHashrate    AlertKind = "hashrate"
	AlertOffline     AlertKind = "offline"
)

// Alert is one threshold violation or device transition
type Alert struct {
	Timestamp time.Time `json:"timestamp"`
	DeviceIP  string    `json:"device_ip"`
	Kind      AlertKind `json:"kind"`
	Message   string    `json:"message"`
}

// MaxAlertHistory bounds the engine's in-memory alert list. Older alerts
// rotate out; the running counter is never reset.
const MaxAlertHistory = 100

// evalTemperature returns a temperature alert when the reading is strictly
// above the threshold. A zero or negative threshold disables the check.
func evalTemperature(device *api.Device, stats *api.DeviceStats, threshold float64) *Alert {
	if threshold <= 0 || stats.Temperature <= threshold {
		return nil
	}
	return &Alert{
		Timestamp: stats.Timestamp,
		DeviceIP:  device.IP,
		Kind:      AlertTemperature,
		Message: fmt.Sprintf("%s temperature alert: %.1f°C > %.1f°C",
			device.DisplayName(), stats.Temperature, threshold),
	}
}

// evalHashrateDrop returns a drop alert when the percentage fall from the
// previous reading exceeds the threshold. Requires both a positive
// threshold and a previous reading; it never fires on the first reading
// for an address.
func evalHashrateDrop(device *api.Device, stats *api.DeviceStats, previous float64, hasPrevious bool, threshold float64) *Alert {
	if threshold <= 0 || !hasPrevious || previous <= 0 {
		return nil
	}
	drop := (previous - stats.Hashrate) / previous * 100
	if drop <= threshold {
		return nil
	}
	return &Alert{
		Timestamp: stats.Timestamp,
		DeviceIP:  device.IP,
		Kind:      AlertHashrate,
		Message: fmt.Sprintf("%s hashrate decreased by %.1f%% (%.1f -> %.1f GH/s)",
			device.DisplayName(), drop, previous, stats.Hashrate),
	}
}

// offlineAlert records a device transition to offline
func offlineAlert(device *api.Device, now time.Time) *Alert {
	return &Alert{
		Timestamp: now,
		DeviceIP:  device.IP,
		Kind:      AlertOffline,
		Message:   fmt.Sprintf("%s went offline", device.DisplayName()),
	}
}
