package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/axefleet/axectl/internal/api"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRecordAndHistory(t *testing.T) {
	db := openTestDB(t)

	device := &api.Device{IP: "10.0.0.1", Hostname: "bitaxe-01", Type: api.DeviceTypeBitaxeGamma}
	for i, rate := range []float64{1100, 1150, 1090} {
		err := db.Record(device, &api.DeviceStats{
			Hashrate:    rate,
			Temperature: 60,
			Power:       18,
			Timestamp:   time.Now().Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	readings, err := db.History("10.0.0.1", 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(readings) != 3 {
		t.Fatalf("got %d readings, want 3", len(readings))
	}
	// Newest first
	if readings[0].Hashrate != 1090 {
		t.Errorf("newest hashrate = %v, want 1090", readings[0].Hashrate)
	}
	if readings[0].Hostname != "bitaxe-01" || readings[0].DeviceType != "bitaxe-gamma" {
		t.Errorf("identity columns = %q/%q", readings[0].Hostname, readings[0].DeviceType)
	}
}

func TestHistoryLimit(t *testing.T) {
	db := openTestDB(t)
	device := &api.Device{IP: "10.0.0.1"}

	for i := 0; i < 5; i++ {
		if err := db.Record(device, &api.DeviceStats{Hashrate: float64(i), Timestamp: time.Now().Add(time.Duration(i) * time.Second)}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	readings, err := db.History("10.0.0.1", 2)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(readings) != 2 {
		t.Errorf("got %d readings, want limit of 2", len(readings))
	}
}

func TestHistoryUnknownDevice(t *testing.T) {
	db := openTestDB(t)
	readings, err := db.History("192.0.2.1", 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(readings) != 0 {
		t.Errorf("got %d readings for unknown device, want 0", len(readings))
	}
}
