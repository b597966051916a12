package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/axefleet/axectl/internal/api"
	"github.com/axefleet/axectl/internal/logging"
)

const (
	// FileName is the cache file name inside the cache directory
	FileName = "devices.json"

	// SnapshotVersion is the current on-disk schema version
	SnapshotVersion = 2

	// DefaultRetention is how long unseen devices stay cached
	DefaultRetention = 7 * 24 * time.Hour

	// MaxStatsHistory bounds the per-device stats history
	MaxStatsHistory = 10
)

// Entry is one cached device plus its probe bookkeeping
type Entry struct {
	Device       *api.Device        `json:"device"`
	LastProbeOK  bool               `json:"last_probe_ok"`
	FailedProbes int                `json:"failed_probes"`
	StatsHistory []*api.DeviceStats `json:"stats_history,omitempty"`
}

// snapshot is the on-disk shape of the cache file
type snapshot struct {
	Version   int               `json:"version"`
	UpdatedAt time.Time         `json:"updated_at"`
	Devices   map[string]*Entry `json:"devices"`
}

// snapshotV1 is the legacy shape: a bare device list without probe
// bookkeeping. Migrated transparently on load.
type snapshotV1 struct {
	Version int           `json:"version"`
	Devices []*api.Device `json:"devices"`
}

// Cache is the durable store of previously seen devices. Safe for
// concurrent use.
type Cache struct {
	path string

	mu      sync.Mutex
	entries map[string]*Entry
}

// Load opens the cache at dir/devices.json. A missing or corrupt file
// yields an empty cache, not an error; only an empty dir is rejected.
func Load(dir string) (*Cache, error) {
	if dir == "" {
		return nil, fmt.Errorf("cache directory not configured")
	}

	c := &Cache{
		path:    filepath.Join(dir, FileName),
		entries: make(map[string]*Entry),
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Warn("Failed to read device cache", zap.String("path", c.path), zap.Error(err))
		}
		return c, nil
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err == nil && snap.Devices != nil {
		for ip, entry := range snap.Devices {
			if entry != nil && entry.Device != nil {
				c.entries[ip] = entry
			}
		}
		return c, nil
	}

	// Try the legacy v1 list shape before giving up
	var v1 snapshotV1
	if err := json.Unmarshal(data, &v1); err == nil && v1.Devices != nil {
		for _, d := range v1.Devices {
			if d != nil && d.IP != "" {
				c.entries[d.IP] = &Entry{Device: d, LastProbeOK: d.IsOnline()}
			}
		}
		logging.Info("Migrated device cache from v1", zap.Int("devices", len(c.entries)))
		return c, nil
	}

	logging.Warn("Device cache is corrupt, starting empty", zap.String("path", c.path))
	return c, nil
}

// Save writes the cache back to disk atomically (write temp file, rename).
// The snapshot is deep-copied under the lock so concurrent mutators cannot
// race the marshal.
func (c *Cache) Save() error {
	c.mu.Lock()
	snap := snapshot{
		Version:   SnapshotVersion,
		UpdatedAt: time.Now(),
		Devices:   make(map[string]*Entry, len(c.entries)),
	}
	for ip, entry := range c.entries {
		copied := &Entry{
			Device:       entry.Device.Clone(),
			LastProbeOK:  entry.LastProbeOK,
			FailedProbes: entry.FailedProbes,
		}
		if len(entry.StatsHistory) > 0 {
			copied.StatsHistory = make([]*api.DeviceStats, len(entry.StatsHistory))
			copy(copied.StatsHistory, entry.StatsHistory)
		}
		snap.Devices[ip] = copied
	}
	c.mu.Unlock()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode device cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write device cache: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("failed to replace device cache: %w", err)
	}
	return nil
}

// KnownAddresses returns every cached address, sorted for stable iteration
func (c *Cache) KnownAddresses() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	addrs := make([]string, 0, len(c.entries))
	for ip := range c.entries {
		addrs = append(addrs, ip)
	}
	sort.Strings(addrs)
	return addrs
}

// Get returns a copy of the cached device for an address, or nil
func (c *Cache) Get(ip string) *api.Device {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[ip]; ok {
		return entry.Device.Clone()
	}
	return nil
}

// Devices returns a copy of every cached device, sorted by address
func (c *Cache) Devices() []*api.Device {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*api.Device, 0, len(c.entries))
	for _, entry := range c.entries {
		out = append(out, entry.Device.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return api.LessIP(out[i].IP, out[j].IP) })
	return out
}

// Len returns the number of cached devices
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Upsert inserts or refreshes a device, preserving the original discovery
// timestamp and stats history of an existing entry. The cache stores its
// own copy; the caller's device sees the merged timestamps but is never
// retained.
func (c *Cache) Upsert(device *api.Device) {
	if device == nil || device.IP == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	existing, ok := c.entries[device.IP]
	if ok {
		if !existing.Device.DiscoveredAt.IsZero() {
			device.DiscoveredAt = existing.Device.DiscoveredAt
		}
		if device.LastSeen.Before(existing.Device.LastSeen) {
			device.LastSeen = existing.Device.LastSeen
		}
		existing.Device = device.Clone()
		existing.LastProbeOK = device.IsOnline()
		if device.IsOnline() {
			existing.FailedProbes = 0
		}
		return
	}

	c.entries[device.IP] = &Entry{
		Device:      device.Clone(),
		LastProbeOK: device.IsOnline(),
	}
}

// MarkProbeFailed records a failed probe against an address
func (c *Cache) MarkProbeFailed(ip string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[ip]
	if !ok {
		return
	}
	entry.LastProbeOK = false
	entry.FailedProbes++
	entry.Device.Status = api.StatusOffline
}

// RecordStats appends a stats snapshot to an address's bounded history and
// embeds it as the device's latest reading.
func (c *Cache) RecordStats(ip string, stats *api.DeviceStats) {
	if stats == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[ip]
	if !ok {
		return
	}
	entry.Device.Stats = stats
	entry.Device.Touch(stats.Timestamp)
	entry.StatsHistory = append(entry.StatsHistory, stats)
	if len(entry.StatsHistory) > MaxStatsHistory {
		entry.StatsHistory = entry.StatsHistory[len(entry.StatsHistory)-MaxStatsHistory:]
	}
}

// History returns the recorded stats history for an address, newest last
func (c *Cache) History(ip string) []*api.DeviceStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[ip]
	if !ok {
		return nil
	}
	out := make([]*api.DeviceStats, len(entry.StatsHistory))
	copy(out, entry.StatsHistory)
	return out
}

// PruneOlderThan drops entries whose device has not been seen within the
// retention window. Returns the number of entries removed.
func (c *Cache) PruneOlderThan(retention time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := time.Now().Add(-retention)
	removed := 0
	for ip, entry := range c.entries {
		if entry.Device.LastSeen.Before(cutoff) {
			delete(c.entries, ip)
			removed++
		}
	}
	return removed
}
