package api

import (
	"net/netip"
	"strings"
	"time"
)

// DeviceType is the closed-set classification of a miner's hardware variant.
type DeviceType string

const (
	DeviceTypeBitaxeUltra  DeviceType = "bitaxe-ultra"
	DeviceTypeBitaxeMax    DeviceType = "bitaxe-max"
	DeviceTypeBitaxeGamma  DeviceType = "bitaxe-gamma"
	DeviceTypeNerdqaxePlus DeviceType = "nerdqaxe-plus"
	DeviceTypeUnknown      DeviceType = "unknown"
)

// String returns the canonical name for the device type
func (t DeviceType) String() string {
	return string(t)
}

// DisplayName returns a human-readable product name for the device type
func (t DeviceType) DisplayName() string {
	switch t {
	case DeviceTypeBitaxeUltra:
		return "Bitaxe Ultra"
	case DeviceTypeBitaxeMax:
		return "Bitaxe Max"
	case DeviceTypeBitaxeGamma:
		return "Bitaxe Gamma"
	case DeviceTypeNerdqaxePlus:
		return "NerdQAxe+"
	default:
		return "Unknown"
	}
}

// ParseDeviceType converts a user-supplied type filter string into a
// DeviceType. Accepts both canonical names ("bitaxe-ultra") and shorthand
// ("ultra", "gamma", "nerdqaxe").
func ParseDeviceType(s string) (DeviceType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bitaxe-ultra", "ultra":
		return DeviceTypeBitaxeUltra, true
	case "bitaxe-max", "max":
		return DeviceTypeBitaxeMax, true
	case "bitaxe-gamma", "gamma":
		return DeviceTypeBitaxeGamma, true
	case "nerdqaxe-plus", "nerdqaxe", "nerdqaxe+":
		return DeviceTypeNerdqaxePlus, true
	case "unknown":
		return DeviceTypeUnknown, true
	default:
		return DeviceTypeUnknown, false
	}
}

// DeviceStatus is the lifecycle status of a tracked device.
type DeviceStatus string

const (
	StatusOnline  DeviceStatus = "online"
	StatusOffline DeviceStatus = "offline"
	StatusError   DeviceStatus = "error"
)

// Device is the unified identity of one discovered miner.
// IP uniquely identifies a device within one process's view.
type Device struct {
	IP              string       `json:"ip"`
	Hostname        string       `json:"hostname"`
	Type            DeviceType   `json:"type"`
	Status          DeviceStatus `json:"status"`
	MACAddr         string       `json:"mac_addr,omitempty"`
	FirmwareVersion string       `json:"firmware_version,omitempty"`
	BoardVersion    string       `json:"board_version,omitempty"`
	DiscoveredAt    time.Time    `json:"discovered_at"`
	LastSeen        time.Time    `json:"last_seen"`
	Stats           *DeviceStats `json:"stats,omitempty"`
}

// Touch updates LastSeen, keeping it monotonically non-decreasing.
func (d *Device) Touch(now time.Time) {
	if now.After(d.LastSeen) {
		d.LastSeen = now
	}
}

// IsOnline reports whether the device responded to its most recent probe
func (d *Device) IsOnline() bool {
	return d.Status == StatusOnline
}

// DisplayName returns the hostname when known, otherwise the IP
func (d *Device) DisplayName() string {
	if d.Hostname != "" {
		return d.Hostname
	}
	return d.IP
}

// Clone returns an independent copy of the device. The embedded stats
// snapshot is copied too, so neither copy can observe the other's writes.
func (d *Device) Clone() *Device {
	if d == nil {
		return nil
	}
	copied := *d
	if d.Stats != nil {
		stats := *d.Stats
		copied.Stats = &stats
	}
	return &copied
}

// LessIP orders addresses numerically, falling back to string comparison
// for unparseable values. String comparison alone would put 192.168.1.20
// before 192.168.1.5.
func LessIP(a, b string) bool {
	ipA, errA := netip.ParseAddr(a)
	ipB, errB := netip.ParseAddr(b)
	if errA != nil || errB != nil {
		return a < b
	}
	return ipA.Less(ipB)
}

// DeviceStats is a point-in-time measurement from one device.
// A new reading is a new value, never a mutation of a prior one.
type DeviceStats struct {
	Hashrate       float64   `json:"hashrate"` // GH/s
	Temperature    float64   `json:"temperature"`
	Power          float64   `json:"power"` // watts
	FanSpeedPct    int       `json:"fan_speed_pct"`
	FanRPM         int       `json:"fan_rpm"`
	SharesAccepted int64     `json:"shares_accepted"`
	SharesRejected int64     `json:"shares_rejected"`
	UptimeSeconds  int64     `json:"uptime_seconds"`
	PoolURL        string    `json:"pool_url,omitempty"`
	WifiRSSI       int       `json:"wifi_rssi,omitempty"`
	Voltage        float64   `json:"voltage,omitempty"`      // millivolts
	Frequency      int       `json:"frequency,omitempty"`    // MHz
	BestDiff       string    `json:"best_diff,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// DeviceFilter narrows a device set by type and online status.
// A nil filter matches every online device.
type DeviceFilter struct {
	Types          []DeviceType
	IncludeOffline bool
}

// Matches reports whether the device passes the filter
func (f *DeviceFilter) Matches(d *Device) bool {
	if f == nil {
		return d.IsOnline()
	}
	if !f.IncludeOffline && !d.IsOnline() {
		return false
	}
	if len(f.Types) == 0 {
		return true
	}
	for _, t := range f.Types {
		if d.Type == t {
			return true
		}
	}
	return false
}

// SwarmSummary aggregates fleet-wide stats across a device list
type SwarmSummary struct {
	TotalDevices   int     `json:"total_devices"`
	OnlineDevices  int     `json:"online_devices"`
	TotalHashrate  float64 `json:"total_hashrate"` // GH/s
	TotalPower     float64 `json:"total_power"`    // watts
	AvgTemperature float64 `json:"avg_temperature"`
}

// TypeSummary aggregates stats for one device type
type TypeSummary struct {
	Type          DeviceType `json:"type"`
	Count         int        `json:"count"`
	OnlineCount   int        `json:"online_count"`
	TotalHashrate float64    `json:"total_hashrate"`
}

// Summarize builds a SwarmSummary from a device list. Devices without a
// stats snapshot contribute to the counts but not to the aggregates.
func Summarize(devices []*Device) SwarmSummary {
	var s SwarmSummary
	var tempSum float64
	var tempCount int
	for _, d := range devices {
		s.TotalDevices++
		if d.IsOnline() {
			s.OnlineDevices++
		}
		if d.Stats == nil {
			continue
		}
		s.TotalHashrate += d.Stats.Hashrate
		s.TotalPower += d.Stats.Power
		if d.Stats.Temperature > 0 {
			tempSum += d.Stats.Temperature
			tempCount++
		}
	}
	if tempCount > 0 {
		s.AvgTemperature = tempSum / float64(tempCount)
	}
	return s
}

// SummarizeByType groups a device list into per-type summaries, ordered by
// canonical type name for stable output.
func SummarizeByType(devices []*Device) []TypeSummary {
	order := []DeviceType{
		DeviceTypeBitaxeUltra,
		DeviceTypeBitaxeMax,
		DeviceTypeBitaxeGamma,
		DeviceTypeNerdqaxePlus,
		DeviceTypeUnknown,
	}
	byType := make(map[DeviceType]*TypeSummary)
	for _, d := range devices {
		ts, ok := byType[d.Type]
		if !ok {
			ts = &TypeSummary{Type: d.Type}
			byType[d.Type] = ts
		}
		ts.Count++
		if d.IsOnline() {
			ts.OnlineCount++
		}
		if d.Stats != nil {
			ts.TotalHashrate += d.Stats.Hashrate
		}
	}
	var out []TypeSummary
	for _, t := range order {
		if ts, ok := byType[t]; ok {
			out = append(out, *ts)
		}
	}
	return out
}

// SystemInfo is the unified decode of an AxeOS-style /api/system/info
// response. Fields absent from one firmware family are zero-valued.
type SystemInfo struct {
	Hostname         string  `json:"hostname"`
	ASICModel        string  `json:"ASICModel"`
	DeviceModel      string  `json:"deviceModel"`
	BoardVersion     string  `json:"boardVersion"`
	Version          string  `json:"version"`
	MACAddr          string  `json:"macAddr"`
	HashRate         float64 `json:"hashRate"` // GH/s
	ExpectedHashrate float64 `json:"expectedHashrate"`
	Temp             float64 `json:"temp"`
	VRTemp           float64 `json:"vrTemp"`
	Power            float64 `json:"power"`
	Voltage          float64 `json:"voltage"`
	FanSpeed         int     `json:"fanspeed"`
	FanRPM           int     `json:"fanrpm"`
	AutoFanSpeed     int     `json:"autofanspeed"`
	Frequency        int     `json:"frequency"`
	CoreVoltage      int     `json:"coreVoltage"`
	SharesAccepted   int64   `json:"sharesAccepted"`
	SharesRejected   int64   `json:"sharesRejected"`
	UptimeSeconds    int64   `json:"uptimeSeconds"`
	BestDiff         string  `json:"bestDiff"`
	BestSessionDiff  string  `json:"bestSessionDiff"`
	StratumURL       string  `json:"stratumURL"`
	StratumPort      int     `json:"stratumPort"`
	StratumUser      string  `json:"stratumUser"`
	WifiStatus       string  `json:"wifiStatus"`
	WifiRSSI         int     `json:"wifiRSSI"`
	SSID             string  `json:"ssid"`
	FreeHeap         int64   `json:"freeHeap"`
}

// DetectDeviceType classifies a system-info payload into the closed device
// type set. The priority order is a contract: the NerdQAxe "deviceModel"
// field is checked before the Bitaxe "ASICModel" field, and the hostname
// vocabulary is the last resort.
func DetectDeviceType(info *SystemInfo) DeviceType {
	model := strings.ToLower(info.DeviceModel)
	if model != "" {
		if strings.Contains(model, "nerdqaxe") || strings.Contains(model, "s21") {
			return DeviceTypeNerdqaxePlus
		}
	}

	switch strings.ToUpper(info.ASICModel) {
	case "BM1366":
		return DeviceTypeBitaxeUltra
	case "BM1368":
		return DeviceTypeBitaxeMax
	case "BM1370":
		return DeviceTypeBitaxeGamma
	}

	host := strings.ToLower(info.Hostname)
	if strings.Contains(host, "nerdqaxe") {
		return DeviceTypeNerdqaxePlus
	}

	return DeviceTypeUnknown
}

// Stats converts a system-info payload into a stats snapshot taken now
func (si *SystemInfo) Stats(now time.Time) *DeviceStats {
	pool := si.StratumURL
	if pool != "" && si.StratumPort != 0 {
		pool = strings.TrimSuffix(pool, "/")
	}
	return &DeviceStats{
		Hashrate:       si.HashRate,
		Temperature:    si.Temp,
		Power:          si.Power,
		FanSpeedPct:    si.FanSpeed,
		FanRPM:         si.FanRPM,
		SharesAccepted: si.SharesAccepted,
		SharesRejected: si.SharesRejected,
		UptimeSeconds:  si.UptimeSeconds,
		PoolURL:        pool,
		WifiRSSI:       si.WifiRSSI,
		Voltage:        si.Voltage,
		Frequency:      si.Frequency,
		BestDiff:       si.BestDiff,
		Timestamp:      now,
	}
}

// Device converts a system-info payload into a Device record for an address
func (si *SystemInfo) Device(ip string, now time.Time) *Device {
	return &Device{
		IP:              ip,
		Hostname:        si.Hostname,
		Type:            DetectDeviceType(si),
		Status:          StatusOnline,
		MACAddr:         si.MACAddr,
		FirmwareVersion: si.Version,
		BoardVersion:    si.BoardVersion,
		DiscoveredAt:    now,
		LastSeen:        now,
		Stats:           si.Stats(now),
	}
}

// WifiNetwork is one entry from a device's WiFi scan
type WifiNetwork struct {
	SSID     string `json:"ssid"`
	RSSI     int    `json:"rssi"`
	AuthMode int    `json:"authmode"`
}
