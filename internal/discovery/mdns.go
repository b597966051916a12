package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/axefleet/axectl/internal/api"
	"github.com/axefleet/axectl/internal/logging"
)

const (
	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultBrowseTimeout is the default overall mDNS time budget
	DefaultBrowseTimeout = 5 * time.Second

	// MinServiceSlice is the smallest per-service collection window.
	// Events arriving after a service's slice expires are discarded.
	MinServiceSlice = 500 * time.Millisecond

	// HTTPPort is the port AxeOS web servers advertise
	HTTPPort = 80
)

// DefaultServiceNames is the set of mDNS service types miners are known to
// advertise under. Plain _http is last: it is the most permissive match
// and catches firmware that does not register a dedicated type.
var DefaultServiceNames = []string{
	"_axeos._tcp",
	"_bitaxe._tcp",
	"_nerdqaxe._tcp",
	"_https._tcp",
	"_http._tcp",
}

// hostnameVocabulary are substrings that mark a hostname as a plausible miner
var hostnameVocabulary = []string{"bitaxe", "nerdqaxe", "axe"}

// ServiceRecord is one resolved mDNS service instance
type ServiceRecord struct {
	Instance    string
	Hostname    string
	Addresses   []string
	Port        int
	ServiceType string
	Metadata    map[string]string
	ResolvedAt  time.Time
}

// MdnsBrowser discovers miners advertised over mDNS
type MdnsBrowser struct {
	// ServiceNames is the set of service types to browse
	ServiceNames []string

	// Timeout is the overall browse time budget, divided into
	// per-service slices
	Timeout time.Duration

	prober Prober
}

// NewMdnsBrowser creates a browser over the default service set
func NewMdnsBrowser(prober Prober) *MdnsBrowser {
	return &MdnsBrowser{
		ServiceNames: DefaultServiceNames,
		Timeout:      DefaultBrowseTimeout,
		prober:       prober,
	}
}

// Browse collects service records for every configured service name within
// the time budget, deduplicated by full instance name (most recent wins).
func (b *MdnsBrowser) Browse(ctx context.Context) ([]*ServiceRecord, error) {
	if len(b.ServiceNames) == 0 {
		return nil, nil
	}

	slice := b.Timeout / time.Duration(len(b.ServiceNames))
	if slice < MinServiceSlice {
		slice = MinServiceSlice
	}

	// Dedup across services by instance name, keeping the most recent record
	records := make(map[string]*ServiceRecord)

	for _, service := range b.ServiceNames {
		if ctx.Err() != nil {
			break
		}
		if err := b.browseService(ctx, service, slice, records); err != nil {
			// One service failing does not abort the others
			logging.Warn("mDNS browse failed",
				zap.String("service", service),
				zap.Error(err),
			)
		}
	}

	out := make([]*ServiceRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, rec)
	}
	return out, nil
}

// browseService collects resolution events for one service type for the
// duration of its slice.
func (b *MdnsBrowser) browseService(ctx context.Context, service string, slice time.Duration, records map[string]*ServiceRecord) error {
	ctx, cancel := context.WithTimeout(ctx, slice)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for entry := range entries {
			rec := parseServiceEntry(entry, service)
			if rec == nil {
				continue
			}
			records[rec.Instance] = rec
			logging.Debug("mDNS entry resolved",
				zap.String("instance", rec.Instance),
				zap.String("hostname", rec.Hostname),
				zap.Strings("addrs", rec.Addresses),
			)
		}
	}()

	if err := resolver.Browse(ctx, service, ServiceDomain, entries); err != nil {
		return fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	// Browse closes the entries channel when the slice context expires
	<-ctx.Done()
	<-done
	return nil
}

// parseServiceEntry converts a zeroconf service entry to a ServiceRecord.
// Returns nil for entries with no resolvable address.
func parseServiceEntry(entry *zeroconf.ServiceEntry, service string) *ServiceRecord {
	var addrs []string
	for _, addr := range entry.AddrIPv4 {
		addrs = append(addrs, addr.String())
	}
	for _, addr := range entry.AddrIPv6 {
		addrs = append(addrs, addr.String())
	}
	if len(addrs) == 0 {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = HTTPPort
	}

	// TXT records are in "key=value" format
	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}

	return &ServiceRecord{
		Instance:    entry.ServiceInstanceName(),
		Hostname:    strings.TrimSuffix(entry.HostName, "."),
		Addresses:   addrs,
		Port:        port,
		ServiceType: service,
		Metadata:    metadata,
		ResolvedAt:  time.Now(),
	}
}

// Plausible decides whether a record plausibly belongs to a managed miner.
// Checks, most specific first: hostname vocabulary, dedicated service
// types, a "model"/"firmware" metadata hint, an explicit port-80 record.
// Generic _http records default to plausible as the most permissive filter.
func Plausible(rec *ServiceRecord) bool {
	host := strings.ToLower(rec.Hostname)
	for _, word := range hostnameVocabulary {
		if strings.Contains(host, word) {
			return true
		}
	}

	service := strings.ToLower(rec.ServiceType)
	if strings.Contains(service, "axeos") ||
		strings.Contains(service, "bitaxe") ||
		strings.Contains(service, "nerdqaxe") {
		return true
	}

	for key, value := range rec.Metadata {
		k := strings.ToLower(key)
		if k != "model" && k != "firmware" {
			continue
		}
		v := strings.ToLower(value)
		if strings.Contains(v, "bitaxe") || strings.Contains(v, "nerdqaxe") || strings.Contains(v, "axeos") {
			return true
		}
	}

	if rec.Port == HTTPPort {
		return true
	}

	return strings.Contains(service, "_http._tcp")
}

// Discover browses, filters plausible records, and confirms each candidate
// with a single probe. Candidate addresses are tried in order, stopping at
// the first success per record.
func (b *MdnsBrowser) Discover(ctx context.Context) ([]*api.Device, error) {
	start := time.Now()

	records, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}

	var devices []*api.Device
	seen := make(map[string]bool)

	for _, rec := range records {
		if !Plausible(rec) {
			logging.Debug("mDNS record rejected", zap.String("instance", rec.Instance))
			continue
		}

		for _, addr := range rec.Addresses {
			if seen[addr] {
				break
			}
			device, err := b.prober.ProbeDevice(ctx, addr, MinServiceSlice)
			if err != nil {
				continue
			}
			if device.Hostname == "" {
				device.Hostname = rec.Hostname
			}
			devices = append(devices, device)
			seen[addr] = true
			break
		}
	}

	logging.LogDiscoveryStage("mdns", len(devices), time.Since(start))
	return devices, nil
}
