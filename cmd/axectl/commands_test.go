package main

import (
	"testing"
)

func TestStatsDeviceArgumentOptional(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"no argument queries the fleet", nil, false},
		{"single device", []string{"192.168.1.37"}, false},
		{"two devices rejected", []string{"a", "b"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := statsCmd.Args(statsCmd, tt.args)
			if (err != nil) != tt.wantErr {
				t.Errorf("Args(%v) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			}
		})
	}
}

func TestStatsIntervalFlag(t *testing.T) {
	f := statsCmd.Flags().Lookup("interval")
	if f == nil {
		t.Fatal("stats command has no --interval flag")
	}
	if f.DefValue != "5s" {
		t.Errorf("--interval default = %s, want 5s", f.DefValue)
	}
}

func TestMonitorFlagSurface(t *testing.T) {
	for _, name := range []string{
		"interval",
		"temp-alert",
		"hashrate-alert",
		"type-filter",
		"all",
		"no-stats",
		"discover",
		"discover-interval",
		"network",
		"no-mdns",
		"db",
		"plain",
	} {
		if monitorCmd.Flags().Lookup(name) == nil {
			t.Errorf("monitor command has no --%s flag", name)
		}
	}
}

func TestListAllFlag(t *testing.T) {
	if listCmd.Flags().Lookup("all") == nil {
		t.Error("list command has no --all flag")
	}
}
