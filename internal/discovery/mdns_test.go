package discovery

import (
	"net"
	"testing"

	"github.com/grandcat/zeroconf"
)

func TestPlausible(t *testing.T) {
	tests := []struct {
		name string
		rec  ServiceRecord
		want bool
	}{
		{
			"bitaxe hostname",
			ServiceRecord{Hostname: "bitaxe-garage.local", ServiceType: "_http._tcp", Port: 8080},
			true,
		},
		{
			"nerdqaxe hostname",
			ServiceRecord{Hostname: "NerdQAxe-01.local", ServiceType: "_https._tcp", Port: 443},
			true,
		},
		{
			"dedicated service type",
			ServiceRecord{Hostname: "miner.local", ServiceType: "_axeos._tcp", Port: 8080},
			true,
		},
		{
			"model metadata",
			ServiceRecord{
				Hostname:    "device.local",
				ServiceType: "_https._tcp",
				Port:        443,
				Metadata:    map[string]string{"model": "Bitaxe Gamma"},
			},
			true,
		},
		{
			"firmware metadata",
			ServiceRecord{
				Hostname:    "device.local",
				ServiceType: "_https._tcp",
				Port:        443,
				Metadata:    map[string]string{"firmware": "AxeOS 2.4"},
			},
			true,
		},
		{
			"port 80 record",
			ServiceRecord{Hostname: "printer.local", ServiceType: "_https._tcp", Port: 80},
			true,
		},
		{
			"generic http defaults to plausible",
			ServiceRecord{Hostname: "nas.local", ServiceType: "_http._tcp", Port: 5000},
			true,
		},
		{
			"unrelated https service",
			ServiceRecord{Hostname: "router.local", ServiceType: "_https._tcp", Port: 8443},
			false,
		},
		{
			"unrelated metadata ignored",
			ServiceRecord{
				Hostname:    "camera.local",
				ServiceType: "_https._tcp",
				Port:        554,
				Metadata:    map[string]string{"vendor": "bitaxe"},
			},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Plausible(&tt.rec); got != tt.want {
				t.Errorf("Plausible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseServiceEntry(t *testing.T) {
	entry := zeroconf.NewServiceEntry("bitaxe-01", "_http._tcp", "local.")
	entry.HostName = "bitaxe-01.local."
	entry.Port = 80
	entry.AddrIPv4 = []net.IP{net.ParseIP("192.168.1.42")}
	entry.Text = []string{"model=Bitaxe Ultra", "path=/", "flag"}

	rec := parseServiceEntry(entry, "_http._tcp")
	if rec == nil {
		t.Fatal("parseServiceEntry returned nil")
	}
	if rec.Hostname != "bitaxe-01.local" {
		t.Errorf("Hostname = %q, want trailing dot trimmed", rec.Hostname)
	}
	if len(rec.Addresses) != 1 || rec.Addresses[0] != "192.168.1.42" {
		t.Errorf("Addresses = %v", rec.Addresses)
	}
	if rec.Metadata["model"] != "Bitaxe Ultra" {
		t.Errorf("model metadata = %q", rec.Metadata["model"])
	}
	if _, ok := rec.Metadata["flag"]; !ok {
		t.Error("bare TXT key was dropped")
	}
}

func TestParseServiceEntryNoAddress(t *testing.T) {
	entry := zeroconf.NewServiceEntry("ghost", "_http._tcp", "local.")
	entry.HostName = "ghost.local."

	if rec := parseServiceEntry(entry, "_http._tcp"); rec != nil {
		t.Errorf("parseServiceEntry = %+v, want nil for addressless entry", rec)
	}
}

func TestParseServiceEntryDefaultPort(t *testing.T) {
	entry := zeroconf.NewServiceEntry("m", "_http._tcp", "local.")
	entry.HostName = "m.local."
	entry.AddrIPv4 = []net.IP{net.ParseIP("192.168.1.9")}

	rec := parseServiceEntry(entry, "_http._tcp")
	if rec == nil || rec.Port != HTTPPort {
		t.Errorf("Port = %v, want default %d", rec, HTTPPort)
	}
}
