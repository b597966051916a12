package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/axefleet/axectl/internal/api"
)

func device(ip string) *api.Device {
	return &api.Device{
		IP:           ip,
		Hostname:     "miner-" + ip,
		Type:         api.DeviceTypeBitaxeGamma,
		Status:       api.StatusOnline,
		DiscoveredAt: time.Now(),
		LastSeen:     time.Now(),
	}
}

func TestLoadMissingFile(t *testing.T) {
	c, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0 for missing file", c.Len())
	}
}

func TestLoadEmptyDirRejected(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatal("Load(\"\") = nil error, want configuration error")
	}
}

func TestLoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0 for corrupt file", c.Len())
	}
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	c.Upsert(device("10.0.0.1"))
	c.Upsert(device("10.0.0.2"))
	if err := c.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := Load(dir)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Len() != 2 {
		t.Errorf("reloaded Len() = %d, want 2", reloaded.Len())
	}
	got := reloaded.Get("10.0.0.1")
	if got == nil || got.Hostname != "miner-10.0.0.1" {
		t.Errorf("reloaded device = %+v", got)
	}
}

func TestLoadMigratesV1(t *testing.T) {
	dir := t.TempDir()
	v1 := `{
		"version": 1,
		"devices": [
			{"ip": "192.168.1.5", "hostname": "bitaxe-old", "type": "bitaxe-ultra", "status": "online"}
		]
	}`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(v1), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := c.Get("192.168.1.5")
	if got == nil || got.Hostname != "bitaxe-old" {
		t.Errorf("migrated device = %+v", got)
	}
}

func TestKnownAddressesSorted(t *testing.T) {
	c, _ := Load(t.TempDir())
	c.Upsert(device("10.0.0.9"))
	c.Upsert(device("10.0.0.1"))
	c.Upsert(device("10.0.0.5"))

	addrs := c.KnownAddresses()
	want := []string{"10.0.0.1", "10.0.0.5", "10.0.0.9"}
	for i, w := range want {
		if addrs[i] != w {
			t.Errorf("addrs[%d] = %s, want %s", i, addrs[i], w)
		}
	}
}

func TestUpsertPreservesDiscoveryTime(t *testing.T) {
	c, _ := Load(t.TempDir())

	first := device("10.0.0.1")
	first.DiscoveredAt = time.Now().Add(-48 * time.Hour)
	c.Upsert(first)

	updated := device("10.0.0.1")
	c.Upsert(updated)

	got := c.Get("10.0.0.1")
	if !got.DiscoveredAt.Equal(first.DiscoveredAt) {
		t.Errorf("DiscoveredAt = %v, want original %v", got.DiscoveredAt, first.DiscoveredAt)
	}
}

func TestMarkProbeFailed(t *testing.T) {
	c, _ := Load(t.TempDir())
	c.Upsert(device("10.0.0.1"))

	c.MarkProbeFailed("10.0.0.1")
	c.MarkProbeFailed("10.0.0.1")

	got := c.Get("10.0.0.1")
	if got.Status != api.StatusOffline {
		t.Errorf("Status = %v, want offline", got.Status)
	}

	// Unknown addresses are ignored
	c.MarkProbeFailed("10.0.0.200")
}

func TestRecordStatsBoundedHistory(t *testing.T) {
	c, _ := Load(t.TempDir())
	c.Upsert(device("10.0.0.1"))

	for i := 0; i < MaxStatsHistory+5; i++ {
		c.RecordStats("10.0.0.1", &api.DeviceStats{
			Hashrate:  float64(i),
			Timestamp: time.Now(),
		})
	}

	history := c.History("10.0.0.1")
	if len(history) != MaxStatsHistory {
		t.Fatalf("history length = %d, want %d", len(history), MaxStatsHistory)
	}
	// Newest reading is last and matches the embedded snapshot
	last := history[len(history)-1]
	if last.Hashrate != float64(MaxStatsHistory+4) {
		t.Errorf("newest hashrate = %v", last.Hashrate)
	}
	if got := c.Get("10.0.0.1"); got.Stats == nil || got.Stats.Hashrate != last.Hashrate {
		t.Errorf("embedded stats = %+v, want newest reading", got.Stats)
	}
}

func TestUpsertDoesNotRetainCallerPointer(t *testing.T) {
	c, _ := Load(t.TempDir())

	d := device("10.0.0.1")
	c.Upsert(d)

	d.Hostname = "renamed-after-upsert"
	d.Status = api.StatusOffline

	got := c.Get("10.0.0.1")
	if got.Hostname != "miner-10.0.0.1" {
		t.Errorf("Hostname = %q, caller mutation leaked into the cache", got.Hostname)
	}
	if got.Status != api.StatusOnline {
		t.Errorf("Status = %v, caller mutation leaked into the cache", got.Status)
	}
}

func TestGetAndDevicesReturnCopies(t *testing.T) {
	c, _ := Load(t.TempDir())
	c.Upsert(device("10.0.0.1"))

	c.Get("10.0.0.1").Hostname = "mutated-via-get"
	for _, d := range c.Devices() {
		d.Status = api.StatusOffline
	}

	got := c.Get("10.0.0.1")
	if got.Hostname != "miner-10.0.0.1" || got.Status != api.StatusOnline {
		t.Errorf("cached device = %+v, mutations of returned copies leaked in", got)
	}
}

func TestDevicesSortedNumerically(t *testing.T) {
	c, _ := Load(t.TempDir())
	c.Upsert(device("192.168.1.20"))
	c.Upsert(device("192.168.1.5"))
	c.Upsert(device("192.168.1.100"))

	devices := c.Devices()
	want := []string{"192.168.1.5", "192.168.1.20", "192.168.1.100"}
	for i, w := range want {
		if devices[i].IP != w {
			t.Errorf("devices[%d].IP = %s, want %s", i, devices[i].IP, w)
		}
	}
}

func TestSaveConcurrentWithMutation(t *testing.T) {
	c, _ := Load(t.TempDir())
	c.Upsert(device("10.0.0.1"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			d := device("10.0.0.1")
			d.Stats = &api.DeviceStats{Hashrate: float64(i), Timestamp: time.Now()}
			c.Upsert(d)
			c.RecordStats("10.0.0.1", d.Stats)
			c.MarkProbeFailed("10.0.0.1")
		}
	}()

	for i := 0; i < 50; i++ {
		if err := c.Save(); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	<-done
}

func TestPruneOlderThan(t *testing.T) {
	c, _ := Load(t.TempDir())

	fresh := device("10.0.0.1")
	c.Upsert(fresh)

	stale := device("10.0.0.2")
	stale.LastSeen = time.Now().Add(-8 * 24 * time.Hour)
	c.Upsert(stale)

	removed := c.PruneOlderThan(DefaultRetention)
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if c.Get("10.0.0.1") == nil {
		t.Error("fresh entry was pruned")
	}
	if c.Get("10.0.0.2") != nil {
		t.Error("stale entry survived")
	}
}
