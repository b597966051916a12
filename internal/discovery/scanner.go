package discovery

import (
	"context"
	"net/netip"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/axefleet/axectl/internal/api"
	"github.com/axefleet/axectl/internal/logging"
)

const (
	// DefaultPerHostTimeout bounds a single host probe during a scan
	DefaultPerHostTimeout = 500 * time.Millisecond

	// DefaultMaxParallel is the default probe concurrency limit
	DefaultMaxParallel = 50
)

// ScanConfig controls one scan over a network range
type ScanConfig struct {
	// PerHostTimeout bounds each individual probe
	PerHostTimeout time.Duration

	// MaxParallel limits concurrent probes; never unbounded
	MaxParallel int

	// ConfirmOnlyKnownDevices drops responsive hosts that cannot be
	// classified into a known device type
	ConfirmOnlyKnownDevices bool

	// IncludeUnreachable records a placeholder offline device for hosts
	// that did not answer, for visibility
	IncludeUnreachable bool
}

// DefaultScanConfig returns the standard scan configuration
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		PerHostTimeout: DefaultPerHostTimeout,
		MaxParallel:    DefaultMaxParallel,
	}
}

// ScanInfo is observability metadata about one completed scan
type ScanInfo struct {
	AddressesScanned int           `json:"addresses_scanned"`
	DevicesFound     int           `json:"devices_found"`
	Unreachable      int           `json:"unreachable"`
	Unclassified     int           `json:"unclassified"`
	Duration         time.Duration `json:"duration"`
}

// Scanner fans the probe primitive out over every address in a range with
// bounded concurrency.
type Scanner struct {
	prober Prober
	config ScanConfig
}

// NewScanner creates a scanner with the given prober and configuration
func NewScanner(prober Prober, config ScanConfig) *Scanner {
	if config.PerHostTimeout <= 0 {
		config.PerHostTimeout = DefaultPerHostTimeout
	}
	if config.MaxParallel <= 0 {
		config.MaxParallel = DefaultMaxParallel
	}
	return &Scanner{prober: prober, config: config}
}

// Scan probes every candidate address in the range and returns the devices
// that answered, plus scan metadata. For IPv4 ranges the network and
// broadcast addresses are excluded from the candidate list.
func (s *Scanner) Scan(ctx context.Context, r *NetworkRange) ([]*api.Device, ScanInfo) {
	start := time.Now()
	candidates := s.candidateAddresses(r)

	logging.Info("Starting network scan",
		zap.String("range", r.String()),
		zap.Int("addresses", len(candidates)),
		zap.Int("max_parallel", s.config.MaxParallel),
		zap.Duration("per_host_timeout", s.config.PerHostTimeout),
	)

	var (
		mu           sync.Mutex
		devices      []*api.Device
		unreachable  int
		unclassified int
	)

	sem := make(chan struct{}, s.config.MaxParallel)
	var wg sync.WaitGroup

	for _, addr := range candidates {
		wg.Add(1)
		sem <- struct{}{}

		go func(addr netip.Addr) {
			defer wg.Done()
			defer func() { <-sem }()

			ip := addr.String()
			probeStart := time.Now()
			device, err := s.prober.ProbeDevice(ctx, ip, s.config.PerHostTimeout)
			logging.LogProbe(ip, err == nil, time.Since(probeStart))

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				unreachable++
				if s.config.IncludeUnreachable {
					devices = append(devices, &api.Device{
						IP:           ip,
						Type:         api.DeviceTypeUnknown,
						Status:       api.StatusOffline,
						DiscoveredAt: time.Now(),
					})
				}
				return
			}

			if device.Type == api.DeviceTypeUnknown {
				unclassified++
				if s.config.ConfirmOnlyKnownDevices {
					return
				}
			}
			devices = append(devices, device)
		}(addr)
	}

	wg.Wait()

	// Concurrent completion order is arbitrary; sort for stable output
	sort.Slice(devices, func(i, j int) bool {
		return api.LessIP(devices[i].IP, devices[j].IP)
	})

	info := ScanInfo{
		AddressesScanned: len(candidates),
		DevicesFound:     len(devices),
		Unreachable:      unreachable,
		Unclassified:     unclassified,
		Duration:         time.Since(start),
	}

	logging.LogDiscoveryStage("scan", info.DevicesFound, info.Duration)
	return devices, info
}

// candidateAddresses filters a range's addresses down to probe targets.
// IPv4 blocks larger than two addresses lose their first (network) and
// last (broadcast) entries.
func (s *Scanner) candidateAddresses(r *NetworkRange) []netip.Addr {
	addrs := r.Addresses()
	if r.IsIPv4() && len(addrs) > 2 {
		return addrs[1 : len(addrs)-1]
	}
	return addrs
}
