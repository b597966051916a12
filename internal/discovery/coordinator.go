package discovery

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/axefleet/axectl/internal/api"
	"github.com/axefleet/axectl/internal/cache"
	"github.com/axefleet/axectl/internal/logging"
)

const (
	// QuickProbeTimeout is the short fixed timeout for reconfirming
	// cached addresses, independent of the main scan timeout
	QuickProbeTimeout = 500 * time.Millisecond

	// QuickProbeParallel limits concurrent quick probes
	QuickProbeParallel = 20
)

// Browser discovers devices advertised over mDNS
type Browser interface {
	Discover(ctx context.Context) ([]*api.Device, error)
}

// RangeScanner probes every address in a network range
type RangeScanner interface {
	Scan(ctx context.Context, r *NetworkRange) ([]*api.Device, ScanInfo)
}

// Options controls one discovery cycle
type Options struct {
	// Network is a literal CIDR; empty means auto-detect a /24
	Network string

	// Timeout bounds each probe of the full scan
	Timeout time.Duration

	// MaxParallel limits full-scan concurrency
	MaxParallel int

	// MdnsEnabled runs the mDNS browse stage
	MdnsEnabled bool

	// ServiceNames overrides the mDNS service types to browse; empty
	// means DefaultServiceNames
	ServiceNames []string

	// FallbackNetworks are CIDRs tried in order when Network is empty
	// and auto-detection fails
	FallbackNetworks []string

	// Retention is the cache pruning window; zero means the default
	Retention time.Duration
}

// Info is observability metadata for one discovery cycle
type Info struct {
	Range         string        `json:"range"`
	MdnsFound     int           `json:"mdns_found"`
	QuickFound    int           `json:"quick_found"`
	ScanFound     int           `json:"scan_found"`
	Merged        int           `json:"merged"`
	CachePruned   int           `json:"cache_pruned"`
	Scan          ScanInfo      `json:"scan"`
	Duration      time.Duration `json:"duration"`
}

// Coordinator runs the full discovery sequence: mDNS browse, quick
// re-probe of cached addresses, full range scan, merge, cache write-back.
// Every stage is best-effort; a failing stage logs and the cycle continues.
type Coordinator struct {
	Cache   *cache.Cache
	Prober  Prober
	Browser Browser
	Scanner RangeScanner
}

// NewCoordinator wires a coordinator with the default REST prober, mDNS
// browser, and scanner configuration.
func NewCoordinator(c *cache.Cache, opts Options) *Coordinator {
	prober := NewHTTPProber()
	scanConfig := DefaultScanConfig()
	if opts.Timeout > 0 {
		scanConfig.PerHostTimeout = opts.Timeout
	}
	if opts.MaxParallel > 0 {
		scanConfig.MaxParallel = opts.MaxParallel
	}
	browser := NewMdnsBrowser(prober)
	if len(opts.ServiceNames) > 0 {
		browser.ServiceNames = opts.ServiceNames
	}
	return &Coordinator{
		Cache:   c,
		Prober:  prober,
		Browser: browser,
		Scanner: NewScanner(prober, scanConfig),
	}
}

// Discover runs one complete discovery cycle and returns the merged,
// deduplicated device list.
func (co *Coordinator) Discover(ctx context.Context, opts Options) ([]*api.Device, Info, error) {
	start := time.Now()

	r, err := resolveRange(opts.Network, opts.FallbackNetworks)
	if err != nil {
		return nil, Info{}, err
	}

	info := Info{Range: r.String()}

	// Stage 1: mDNS browse
	var mdnsDevices []*api.Device
	if opts.MdnsEnabled && co.Browser != nil {
		mdnsDevices, err = co.Browser.Discover(ctx)
		if err != nil {
			logging.Warn("mDNS stage failed", zap.Error(err))
			mdnsDevices = nil
		}
	}
	info.MdnsFound = len(mdnsDevices)

	// Stage 2: quick re-probe of cached addresses
	quickDevices := co.quickProbe(ctx, co.Cache.KnownAddresses())
	info.QuickFound = len(quickDevices)

	// Stage 3: full scan
	scanDevices, scanInfo := co.Scanner.Scan(ctx, r)
	info.Scan = scanInfo
	info.ScanFound = len(scanDevices)

	// Stage 4: merge, first occurrence wins in stage order. mDNS results
	// take priority over quick-probe, which takes priority over the full
	// scan; cheaper confirmations of identity win.
	merged := MergeDevices(mdnsDevices, quickDevices, scanDevices)
	info.Merged = len(merged)

	// Stage 5: cache write-back and prune. Persistence failures are
	// logged, never fatal to discovery.
	for _, d := range merged {
		co.Cache.Upsert(d)
	}
	retention := opts.Retention
	if retention <= 0 {
		retention = cache.DefaultRetention
	}
	info.CachePruned = co.Cache.PruneOlderThan(retention)
	if err := co.Cache.Save(); err != nil {
		logging.Warn("Failed to persist device cache", zap.Error(err))
	}

	info.Duration = time.Since(start)
	logging.Info("Discovery complete",
		zap.String("range", info.Range),
		zap.Int("mdns", info.MdnsFound),
		zap.Int("quick", info.QuickFound),
		zap.Int("scan", info.ScanFound),
		zap.Int("merged", info.Merged),
		zap.Duration("duration", info.Duration),
	)

	return merged, info, nil
}

// quickProbe reconfirms cached addresses with a short fixed timeout and
// bounded concurrency.
func (co *Coordinator) quickProbe(ctx context.Context, addrs []string) []*api.Device {
	if len(addrs) == 0 {
		return nil
	}
	start := time.Now()

	var (
		mu      sync.Mutex
		devices []*api.Device
	)

	sem := make(chan struct{}, QuickProbeParallel)
	var wg sync.WaitGroup

	for _, addr := range addrs {
		wg.Add(1)
		sem <- struct{}{}

		go func(addr string) {
			defer wg.Done()
			defer func() { <-sem }()

			device, err := co.Prober.ProbeDevice(ctx, addr, QuickProbeTimeout)
			if err != nil {
				co.Cache.MarkProbeFailed(addr)
				return
			}
			mu.Lock()
			devices = append(devices, device)
			mu.Unlock()
		}(addr)
	}

	wg.Wait()
	logging.LogDiscoveryStage("quick-probe", len(devices), time.Since(start))
	return devices
}

// MergeDevices merges result sets by address: first occurrence wins, in
// argument order. Idempotent; merging a set with itself yields the set.
func MergeDevices(sets ...[]*api.Device) []*api.Device {
	seen := make(map[string]bool)
	var merged []*api.Device
	for _, set := range sets {
		for _, d := range set {
			if d == nil || seen[d.IP] {
				continue
			}
			seen[d.IP] = true
			merged = append(merged, d)
		}
	}
	sort.Slice(merged, func(i, j int) bool {
		return api.LessIP(merged[i].IP, merged[j].IP)
	})
	return merged
}

// resolveRange parses a literal CIDR, or auto-detects the local /24,
// falling back to the configured fallback networks when detection fails.
func resolveRange(network string, fallbacks []string) (*NetworkRange, error) {
	if network != "" {
		r, err := ParseNetworkRange(network)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	r, err := DetectNetworkRange()
	if err == nil {
		return r, nil
	}
	if fb := firstFallbackRange(fallbacks); fb != nil {
		logging.Warn("Network auto-detection failed, using fallback network",
			zap.Error(err), zap.String("range", fb.String()))
		return fb, nil
	}
	return nil, fmt.Errorf("failed to auto-detect network range: %w", err)
}

// firstFallbackRange returns the first parseable CIDR from the list, or
// nil when the list is empty or none parse.
func firstFallbackRange(fallbacks []string) *NetworkRange {
	for _, cidr := range fallbacks {
		r, err := ParseNetworkRange(cidr)
		if err != nil {
			logging.Warn("Skipping unparseable fallback network",
				zap.String("network", cidr), zap.Error(err))
			continue
		}
		return r
	}
	return nil
}
