package api

import (
	"testing"
	"time"
)

func TestDetectDeviceType(t *testing.T) {
	tests := []struct {
		name string
		info SystemInfo
		want DeviceType
	}{
		{
			name: "nerdqaxe via deviceModel",
			info: SystemInfo{DeviceModel: "NerdQAxe+", ASICModel: "BM1368", Hostname: "miner1"},
			want: DeviceTypeNerdqaxePlus,
		},
		{
			name: "deviceModel wins over ASICModel",
			info: SystemInfo{DeviceModel: "NerdQAxe+", ASICModel: "BM1366"},
			want: DeviceTypeNerdqaxePlus,
		},
		{
			name: "bitaxe ultra via BM1366",
			info: SystemInfo{ASICModel: "BM1366", Hostname: "bitaxe-01"},
			want: DeviceTypeBitaxeUltra,
		},
		{
			name: "bitaxe max via BM1368",
			info: SystemInfo{ASICModel: "BM1368"},
			want: DeviceTypeBitaxeMax,
		},
		{
			name: "bitaxe gamma via BM1370",
			info: SystemInfo{ASICModel: "bm1370"},
			want: DeviceTypeBitaxeGamma,
		},
		{
			name: "nerdqaxe via hostname fallback",
			info: SystemInfo{Hostname: "nerdqaxe-garage"},
			want: DeviceTypeNerdqaxePlus,
		},
		{
			name: "unrecognized payload",
			info: SystemInfo{Hostname: "espresso-machine", ASICModel: "XY999"},
			want: DeviceTypeUnknown,
		},
		{
			name: "empty payload",
			info: SystemInfo{},
			want: DeviceTypeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectDeviceType(&tt.info)
			if got != tt.want {
				t.Errorf("DetectDeviceType() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseDeviceType(t *testing.T) {
	tests := []struct {
		input  string
		want   DeviceType
		wantOK bool
	}{
		{"bitaxe-ultra", DeviceTypeBitaxeUltra, true},
		{"ultra", DeviceTypeBitaxeUltra, true},
		{"Gamma", DeviceTypeBitaxeGamma, true},
		{" nerdqaxe ", DeviceTypeNerdqaxePlus, true},
		{"nerdqaxe+", DeviceTypeNerdqaxePlus, true},
		{"max", DeviceTypeBitaxeMax, true},
		{"unknown", DeviceTypeUnknown, true},
		{"antminer", DeviceTypeUnknown, false},
		{"", DeviceTypeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseDeviceType(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseDeviceType(%q) = (%v, %v), want (%v, %v)",
					tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestDeviceFilterMatches(t *testing.T) {
	online := &Device{IP: "10.0.0.1", Type: DeviceTypeBitaxeUltra, Status: StatusOnline}
	offline := &Device{IP: "10.0.0.2", Type: DeviceTypeBitaxeGamma, Status: StatusOffline}

	tests := []struct {
		name   string
		filter *DeviceFilter
		device *Device
		want   bool
	}{
		{"nil filter matches online", nil, online, true},
		{"nil filter excludes offline", nil, offline, false},
		{"empty filter excludes offline", &DeviceFilter{}, offline, false},
		{"include offline", &DeviceFilter{IncludeOffline: true}, offline, true},
		{
			"type match",
			&DeviceFilter{Types: []DeviceType{DeviceTypeBitaxeUltra}},
			online, true,
		},
		{
			"type mismatch",
			&DeviceFilter{Types: []DeviceType{DeviceTypeNerdqaxePlus}},
			online, false,
		},
		{
			"type match but offline",
			&DeviceFilter{Types: []DeviceType{DeviceTypeBitaxeGamma}},
			offline, false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(tt.device); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	devices := []*Device{
		{
			IP: "10.0.0.1", Status: StatusOnline,
			Stats: &DeviceStats{Hashrate: 500, Power: 15, Temperature: 60},
		},
		{
			IP: "10.0.0.2", Status: StatusOnline,
			Stats: &DeviceStats{Hashrate: 1200, Power: 22, Temperature: 70},
		},
		{IP: "10.0.0.3", Status: StatusOffline},
	}

	s := Summarize(devices)
	if s.TotalDevices != 3 {
		t.Errorf("TotalDevices = %d, want 3", s.TotalDevices)
	}
	if s.OnlineDevices != 2 {
		t.Errorf("OnlineDevices = %d, want 2", s.OnlineDevices)
	}
	if s.TotalHashrate != 1700 {
		t.Errorf("TotalHashrate = %v, want 1700", s.TotalHashrate)
	}
	if s.TotalPower != 37 {
		t.Errorf("TotalPower = %v, want 37", s.TotalPower)
	}
	if s.AvgTemperature != 65 {
		t.Errorf("AvgTemperature = %v, want 65", s.AvgTemperature)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.TotalDevices != 0 || s.AvgTemperature != 0 {
		t.Errorf("Summarize(nil) = %+v, want zero value", s)
	}
}

func TestSummarizeByType(t *testing.T) {
	devices := []*Device{
		{IP: "10.0.0.1", Type: DeviceTypeBitaxeGamma, Status: StatusOnline, Stats: &DeviceStats{Hashrate: 1100}},
		{IP: "10.0.0.2", Type: DeviceTypeBitaxeGamma, Status: StatusOffline},
		{IP: "10.0.0.3", Type: DeviceTypeNerdqaxePlus, Status: StatusOnline, Stats: &DeviceStats{Hashrate: 4500}},
	}

	out := SummarizeByType(devices)
	if len(out) != 2 {
		t.Fatalf("got %d summaries, want 2", len(out))
	}
	// Gamma sorts before NerdQAxe in the canonical order
	if out[0].Type != DeviceTypeBitaxeGamma || out[0].Count != 2 || out[0].OnlineCount != 1 {
		t.Errorf("gamma summary = %+v", out[0])
	}
	if out[1].Type != DeviceTypeNerdqaxePlus || out[1].TotalHashrate != 4500 {
		t.Errorf("nerdqaxe summary = %+v", out[1])
	}
}

func TestDeviceTouchMonotonic(t *testing.T) {
	now := time.Now()
	d := &Device{IP: "10.0.0.1", LastSeen: now}

	d.Touch(now.Add(-time.Hour))
	if !d.LastSeen.Equal(now) {
		t.Errorf("Touch moved LastSeen backwards to %v", d.LastSeen)
	}

	later := now.Add(time.Minute)
	d.Touch(later)
	if !d.LastSeen.Equal(later) {
		t.Errorf("Touch did not advance LastSeen, got %v", d.LastSeen)
	}
}

func TestDeviceCloneIndependent(t *testing.T) {
	d := &Device{
		IP:       "10.0.0.1",
		Hostname: "bitaxe-01",
		Status:   StatusOnline,
		Stats:    &DeviceStats{Hashrate: 1100, Temperature: 60},
	}

	c := d.Clone()
	c.Hostname = "renamed"
	c.Status = StatusOffline
	c.Stats.Hashrate = 0

	if d.Hostname != "bitaxe-01" || d.Status != StatusOnline {
		t.Errorf("original device mutated through clone: %+v", d)
	}
	if d.Stats.Hashrate != 1100 {
		t.Errorf("original stats mutated through clone: %+v", d.Stats)
	}

	var nilDevice *Device
	if nilDevice.Clone() != nil {
		t.Error("Clone of nil device should be nil")
	}
}

func TestLessIP(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"192.168.1.5", "192.168.1.20", true},
		{"192.168.1.20", "192.168.1.5", false},
		{"192.168.1.20", "192.168.1.100", true},
		{"10.0.0.1", "10.0.0.1", false},
		{"10.0.0.9", "192.168.1.1", true},
		// Unparseable values fall back to string order
		{"abc", "abd", true},
		{"10.0.0.1", "not-an-ip", true},
	}

	for _, tt := range tests {
		if got := LessIP(tt.a, tt.b); got != tt.want {
			t.Errorf("LessIP(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSystemInfoDevice(t *testing.T) {
	info := &SystemInfo{
		Hostname:  "bitaxe-01",
		ASICModel: "BM1370",
		Version:   "2.4.1",
		MACAddr:   "AA:BB:CC:DD:EE:FF",
		HashRate:  1150.5,
		Temp:      62.5,
		Power:     18.2,
	}

	now := time.Now()
	d := info.Device("192.168.1.50", now)

	if d.IP != "192.168.1.50" {
		t.Errorf("IP = %q", d.IP)
	}
	if d.Type != DeviceTypeBitaxeGamma {
		t.Errorf("Type = %v, want gamma", d.Type)
	}
	if d.Status != StatusOnline {
		t.Errorf("Status = %v, want online", d.Status)
	}
	if d.Stats == nil || d.Stats.Hashrate != 1150.5 {
		t.Errorf("Stats = %+v", d.Stats)
	}
	if !d.LastSeen.Equal(now) || !d.DiscoveredAt.Equal(now) {
		t.Errorf("timestamps = %v / %v, want %v", d.DiscoveredAt, d.LastSeen, now)
	}
}
