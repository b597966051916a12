package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/axefleet/axectl/internal/api"
	"github.com/axefleet/axectl/internal/cache"
)

type fakeBrowser struct {
	devices []*api.Device
	err     error
}

func (f *fakeBrowser) Discover(ctx context.Context) ([]*api.Device, error) {
	return f.devices, f.err
}

type fakeScanner struct {
	devices []*api.Device
	info    ScanInfo
}

func (f *fakeScanner) Scan(ctx context.Context, r *NetworkRange) ([]*api.Device, ScanInfo) {
	return f.devices, f.info
}

func testCache(t *testing.T) *cache.Cache {
	t.Helper()
	c, err := cache.Load(t.TempDir())
	if err != nil {
		t.Fatalf("cache.Load: %v", err)
	}
	return c
}

func TestMergeDevicesFirstOccurrenceWins(t *testing.T) {
	mdns := onlineDevice("10.0.0.5", api.DeviceTypeBitaxeGamma)
	mdns.Hostname = "from-mdns"
	quick := onlineDevice("10.0.0.5", api.DeviceTypeBitaxeGamma)
	quick.Hostname = "from-quick"
	scan := onlineDevice("10.0.0.6", api.DeviceTypeBitaxeUltra)

	merged := MergeDevices(
		[]*api.Device{mdns},
		[]*api.Device{quick},
		[]*api.Device{scan},
	)

	if len(merged) != 2 {
		t.Fatalf("merged %d devices, want 2", len(merged))
	}
	if merged[0].IP != "10.0.0.5" || merged[0].Hostname != "from-mdns" {
		t.Errorf("merged[0] = %s/%s, want the mDNS record for 10.0.0.5", merged[0].IP, merged[0].Hostname)
	}
	if merged[1].IP != "10.0.0.6" {
		t.Errorf("merged[1] = %s, want 10.0.0.6", merged[1].IP)
	}
}

func TestMergeDevicesIdempotent(t *testing.T) {
	set := []*api.Device{
		onlineDevice("10.0.0.1", api.DeviceTypeBitaxeUltra),
		onlineDevice("10.0.0.2", api.DeviceTypeNerdqaxePlus),
	}

	merged := MergeDevices(set, set)
	if len(merged) != len(set) {
		t.Errorf("merging a set with itself yields %d devices, want %d", len(merged), len(set))
	}
}

func TestDiscoverMergeAndCache(t *testing.T) {
	c := testCache(t)

	// 10.0.0.5 is already cached, so the quick-probe stage reconfirms it
	cached := onlineDevice("10.0.0.5", api.DeviceTypeBitaxeGamma)
	cached.Hostname = "from-cache"
	c.Upsert(cached)

	mdnsDev := onlineDevice("10.0.0.5", api.DeviceTypeBitaxeGamma)
	mdnsDev.Hostname = "from-mdns"

	quickDev := onlineDevice("10.0.0.5", api.DeviceTypeBitaxeGamma)
	quickDev.Hostname = "from-quick"

	co := &Coordinator{
		Cache:   c,
		Prober:  &fakeProber{devices: map[string]*api.Device{"10.0.0.5": quickDev}},
		Browser: &fakeBrowser{devices: []*api.Device{mdnsDev}},
		Scanner: &fakeScanner{
			devices: []*api.Device{onlineDevice("10.0.0.6", api.DeviceTypeBitaxeUltra)},
			info:    ScanInfo{AddressesScanned: 254, DevicesFound: 1},
		},
	}

	devices, info, err := co.Discover(context.Background(), Options{
		Network:     "10.0.0.0/24",
		MdnsEnabled: true,
	})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	if len(devices) != 2 {
		t.Fatalf("discovered %d devices, want 2", len(devices))
	}
	if devices[0].IP != "10.0.0.5" || devices[0].Hostname != "from-mdns" {
		t.Errorf("10.0.0.5 record = %q, want the mDNS-sourced one", devices[0].Hostname)
	}
	if info.MdnsFound != 1 || info.QuickFound != 1 || info.ScanFound != 1 || info.Merged != 2 {
		t.Errorf("info = %+v", info)
	}

	// Both merged devices were written back to the cache
	if c.Get("10.0.0.6") == nil {
		t.Error("scanned device missing from cache")
	}
	if got := c.Get("10.0.0.5"); got == nil || got.Hostname != "from-mdns" {
		t.Errorf("cached 10.0.0.5 = %+v, want mDNS record", got)
	}
}

func TestDiscoverMdnsStageFailureIsNonFatal(t *testing.T) {
	c := testCache(t)
	co := &Coordinator{
		Cache:   c,
		Prober:  &fakeProber{devices: map[string]*api.Device{}},
		Browser: &fakeBrowser{err: context.DeadlineExceeded},
		Scanner: &fakeScanner{devices: []*api.Device{onlineDevice("10.0.0.6", api.DeviceTypeBitaxeUltra)}},
	}

	devices, _, err := co.Discover(context.Background(), Options{
		Network:     "10.0.0.0/24",
		MdnsEnabled: true,
	})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(devices) != 1 {
		t.Errorf("discovered %d devices, want 1 despite mDNS failure", len(devices))
	}
}

func TestDiscoverQuickProbeMarksFailures(t *testing.T) {
	c := testCache(t)
	stale := onlineDevice("10.0.0.9", api.DeviceTypeBitaxeMax)
	c.Upsert(stale)

	co := &Coordinator{
		Cache:   c,
		Prober:  &fakeProber{devices: map[string]*api.Device{}},
		Browser: &fakeBrowser{},
		Scanner: &fakeScanner{},
	}

	_, _, err := co.Discover(context.Background(), Options{Network: "10.0.0.0/24"})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	if got := c.Get("10.0.0.9"); got == nil || got.Status != api.StatusOffline {
		t.Errorf("cached 10.0.0.9 = %+v, want offline after failed quick-probe", got)
	}
}

func TestDiscoverInvalidRange(t *testing.T) {
	co := &Coordinator{Cache: testCache(t), Prober: &fakeProber{}, Scanner: &fakeScanner{}}

	_, _, err := co.Discover(context.Background(), Options{Network: "bogus"})
	if err == nil {
		t.Fatal("Discover with bad CIDR = nil error, want InvalidRange")
	}
}

func TestFirstFallbackRange(t *testing.T) {
	tests := []struct {
		name      string
		fallbacks []string
		want      string
	}{
		{"empty list", nil, ""},
		{"first parseable wins", []string{"192.168.1.0/24", "10.0.0.0/24"}, "192.168.1.0/24"},
		{"skips unparseable", []string{"bogus", "10.0.0.0/24"}, "10.0.0.0/24"},
		{"all unparseable", []string{"bogus", "also-bad"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := firstFallbackRange(tt.fallbacks)
			if tt.want == "" {
				if got != nil {
					t.Errorf("firstFallbackRange = %v, want nil", got)
				}
				return
			}
			if got == nil || got.String() != tt.want {
				t.Errorf("firstFallbackRange = %v, want %s", got, tt.want)
			}
		})
	}
}

func TestResolveRangeLiteralIgnoresFallbacks(t *testing.T) {
	r, err := resolveRange("10.0.0.0/24", []string{"192.168.1.0/24"})
	if err != nil {
		t.Fatalf("resolveRange: %v", err)
	}
	if r.String() != "10.0.0.0/24" {
		t.Errorf("range = %s, want the literal CIDR", r.String())
	}
}

func TestDiscoverPrunesStaleEntries(t *testing.T) {
	c := testCache(t)
	old := onlineDevice("10.0.0.77", api.DeviceTypeBitaxeUltra)
	old.LastSeen = time.Now().Add(-30 * 24 * time.Hour)
	old.Status = api.StatusOffline
	c.Upsert(old)

	co := &Coordinator{
		Cache:   c,
		Prober:  &fakeProber{devices: map[string]*api.Device{}},
		Browser: &fakeBrowser{},
		Scanner: &fakeScanner{},
	}

	_, info, err := co.Discover(context.Background(), Options{Network: "10.0.0.0/24"})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if info.CachePruned != 1 {
		t.Errorf("CachePruned = %d, want 1", info.CachePruned)
	}
	if c.Get("10.0.0.77") != nil {
		t.Error("stale entry survived pruning")
	}
}
