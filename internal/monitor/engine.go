package monitor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/axefleet/axectl/internal/api"
	"github.com/axefleet/axectl/internal/cache"
	"github.com/axefleet/axectl/internal/discovery"
	"github.com/axefleet/axectl/internal/logging"
)

const (
	// DefaultInterval is the default foreground tick interval
	DefaultInterval = 30 * time.Second

	// DefaultStatsTimeout bounds each per-device stats collection call
	DefaultStatsTimeout = 5 * time.Second

	// DefaultDiscoveryInterval is the default background discovery cadence
	DefaultDiscoveryInterval = 5 * time.Minute

	// MessageBuffer is the capacity of the background discovery channel.
	// Sized so the producer practically never blocks; if it fills, the
	// background task blocks rather than dropping results.
	MessageBuffer = 100
)

// StatsCollector fetches a fresh stats snapshot from one device
type StatsCollector interface {
	CollectStats(ctx context.Context, ip string, timeout time.Duration) (*api.DeviceStats, error)
}

// Discoverer runs one discovery cycle
type Discoverer interface {
	Discover(ctx context.Context, opts discovery.Options) ([]*api.Device, discovery.Info, error)
}

// StatsRecorder persists per-tick stats readings (optional, e.g. SQLite)
type StatsRecorder interface {
	Record(device *api.Device, stats *api.DeviceStats) error
}

// restCollector is the default collector backed by the device REST client
type restCollector struct{}

func (restCollector) CollectStats(ctx context.Context, ip string, timeout time.Duration) (*api.DeviceStats, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	client := api.NewClient(ip)
	client.SetTimeout(timeout)
	return client.FetchStats(ctx)
}

// Config controls one monitor session. Thresholds of zero disable the
// corresponding alert.
type Config struct {
	Interval              time.Duration
	StatsTimeout          time.Duration
	TempThreshold         float64
	HashrateDropThreshold float64
	Filter                *api.DeviceFilter
	CollectStats          bool

	// Background discovery
	DiscoveryEnabled  bool
	DiscoveryInterval time.Duration
	DiscoveryOptions  discovery.Options
}

// messageKind tags background discovery channel messages
type messageKind int

const (
	messageDiscoveryStarted messageKind = iota
	messageNewDevices
	messageDiscoveryComplete
)

// message is what the background discovery task publishes to the
// foreground loop. It is the background task's only way to affect state.
type message struct {
	kind    messageKind
	devices []*api.Device
	info    discovery.Info
}

// Event is the per-tick snapshot handed to the render callback. Devices
// and alerts are copies; the receiver may retain them.
type Event struct {
	Tick            int
	Time            time.Time
	Devices         []*api.Device
	NewAlerts       []Alert
	AlertCount      int
	DiscoveryActive bool
	LastDiscovery   time.Time
}

// state is the monitor's process-local view, owned exclusively by the
// foreground loop.
type state struct {
	devices         map[string]*api.Device
	alerts          []Alert
	alertCount      int
	prevHashrates   map[string]float64
	discoveryActive bool
	lastDiscovery   time.Time
}

// Engine is the continuous monitor loop
type Engine struct {
	config     Config
	cache      *cache.Cache
	collector  StatsCollector
	discoverer Discoverer
	recorder   StatsRecorder
	onTick     func(Event)
	messages   chan message
	st         *state
	tick       int
}

// NewEngine validates the configuration and builds a monitor engine.
// The cache is required: monitoring without a cache location is a
// configuration error surfaced before the loop starts.
func NewEngine(cfg Config, deviceCache *cache.Cache, onTick func(Event)) (*Engine, error) {
	if deviceCache == nil {
		return nil, fmt.Errorf("monitor requires a device cache")
	}
	if cfg.TempThreshold < 0 {
		return nil, fmt.Errorf("temperature threshold must not be negative")
	}
	if cfg.HashrateDropThreshold < 0 || cfg.HashrateDropThreshold > 100 {
		return nil, fmt.Errorf("hashrate drop threshold must be a percentage between 0 and 100")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.StatsTimeout <= 0 {
		cfg.StatsTimeout = DefaultStatsTimeout
	}
	if cfg.DiscoveryInterval <= 0 {
		cfg.DiscoveryInterval = DefaultDiscoveryInterval
	}

	e := &Engine{
		config:    cfg,
		cache:     deviceCache,
		collector: restCollector{},
		onTick:    onTick,
		messages:  make(chan message, MessageBuffer),
		st: &state{
			devices:       make(map[string]*api.Device),
			prevHashrates: make(map[string]float64),
		},
	}
	if cfg.DiscoveryEnabled {
		e.discoverer = discovery.NewCoordinator(deviceCache, cfg.DiscoveryOptions)
	}

	// Seed the view from the cache so monitoring starts immediately
	for _, d := range deviceCache.Devices() {
		e.st.devices[d.IP] = d
	}

	return e, nil
}

// SetCollector replaces the stats collector (used by tests and by callers
// that need custom transport settings).
func (e *Engine) SetCollector(c StatsCollector) { e.collector = c }

// SetDiscoverer replaces the background discoverer
func (e *Engine) SetDiscoverer(d Discoverer) { e.discoverer = d }

// SetRecorder attaches an optional stats history recorder
func (e *Engine) SetRecorder(r StatsRecorder) { e.recorder = r }

// Run executes the monitor loop until the context is cancelled. The first
// tick runs immediately.
func (e *Engine) Run(ctx context.Context) error {
	logging.Info("Monitor starting",
		zap.Duration("interval", e.config.Interval),
		zap.Float64("temp_threshold", e.config.TempThreshold),
		zap.Float64("hashrate_threshold", e.config.HashrateDropThreshold),
		zap.Bool("discovery", e.config.DiscoveryEnabled),
	)

	if e.config.DiscoveryEnabled && e.discoverer != nil {
		go e.discoveryLoop(ctx)
	}

	ticker := time.NewTicker(e.config.Interval)
	defer ticker.Stop()

	for {
		e.runTick(ctx)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// discoveryLoop is the background producer. It never touches the engine's
// state; results reach the foreground loop only through the channel. A
// full channel blocks the producer rather than dropping results.
func (e *Engine) discoveryLoop(ctx context.Context) {
	ticker := time.NewTicker(e.config.DiscoveryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if !e.send(ctx, message{kind: messageDiscoveryStarted}) {
			return
		}

		devices, info, err := e.discoverer.Discover(ctx, e.config.DiscoveryOptions)
		if err != nil {
			logging.Warn("Background discovery failed", zap.Error(err))
		} else if len(devices) > 0 {
			if !e.send(ctx, message{kind: messageNewDevices, devices: devices}) {
				return
			}
		}

		if !e.send(ctx, message{kind: messageDiscoveryComplete, info: info}) {
			return
		}
	}
}

func (e *Engine) send(ctx context.Context, m message) bool {
	select {
	case e.messages <- m:
		return true
	case <-ctx.Done():
		return false
	}
}

// runTick executes one foreground tick: drain discovery messages, collect
// stats concurrently, join, evaluate alerts sequentially, persist, render.
func (e *Engine) runTick(ctx context.Context) {
	e.tick++
	now := time.Now()
	e.drainMessages()

	snapshot := e.snapshotDevices()
	var newAlerts []Alert

	if e.config.CollectStats && len(snapshot) > 0 {
		results := e.collectAll(ctx, snapshot)

		// Apply results in one place, sequentially, after the join
		for _, res := range results {
			if res.err != nil {
				newAlerts = append(newAlerts, e.applyFailure(res.device, now)...)
				continue
			}
			newAlerts = append(newAlerts, e.applySuccess(res.device, res.stats)...)
		}
	}

	for _, a := range newAlerts {
		logging.LogAlert(a.DeviceIP, string(a.Kind), a.Message)
	}
	e.st.alerts = append(e.st.alerts, newAlerts...)
	if len(e.st.alerts) > MaxAlertHistory {
		e.st.alerts = e.st.alerts[len(e.st.alerts)-MaxAlertHistory:]
	}
	e.st.alertCount += len(newAlerts)

	if err := e.cache.Save(); err != nil {
		logging.Warn("Failed to persist device cache", zap.Error(err))
	}

	if e.onTick != nil {
		e.onTick(Event{
			Tick:            e.tick,
			Time:            now,
			Devices:         e.deviceList(),
			NewAlerts:       newAlerts,
			AlertCount:      e.st.alertCount,
			DiscoveryActive: e.st.discoveryActive,
			LastDiscovery:   e.st.lastDiscovery,
		})
	}
}

// drainMessages applies pending background discovery messages without
// blocking the tick.
func (e *Engine) drainMessages() {
	for {
		select {
		case m := <-e.messages:
			switch m.kind {
			case messageDiscoveryStarted:
				e.st.discoveryActive = true
			case messageNewDevices:
				added := 0
				for _, d := range m.devices {
					if _, known := e.st.devices[d.IP]; !known {
						added++
					}
					e.st.devices[d.IP] = d
					e.cache.Upsert(d)
				}
				if added > 0 {
					logging.Info("Background discovery found new devices", zap.Int("new", added))
				}
			case messageDiscoveryComplete:
				e.st.discoveryActive = false
				e.st.lastDiscovery = time.Now()
			}
		default:
			return
		}
	}
}

// snapshotDevices returns the filtered device set for this tick. With
// IncludeOffline set, offline devices stay in the collection set and a
// recovered device transitions back to online on its next successful
// reading; otherwise offline devices wait for discovery to revive them.
func (e *Engine) snapshotDevices() []*api.Device {
	var out []*api.Device
	for _, d := range e.st.devices {
		if e.config.Filter.Matches(d) {
			out = append(out, d)
		}
	}
	return out
}

type collectResult struct {
	device *api.Device
	stats  *api.DeviceStats
	err    error
}

// collectAll fans stats collection out across devices and joins the
// results. Per-device closures never touch shared state; each writes only
// its own slot.
func (e *Engine) collectAll(ctx context.Context, devices []*api.Device) []collectResult {
	results := make([]collectResult, len(devices))
	var wg sync.WaitGroup

	for i, d := range devices {
		wg.Add(1)
		go func(i int, d *api.Device) {
			defer wg.Done()
			stats, err := e.collector.CollectStats(ctx, d.IP, e.config.StatsTimeout)
			results[i] = collectResult{device: d, stats: stats, err: err}
		}(i, d)
	}

	wg.Wait()
	return results
}

// applySuccess folds one successful reading into the state: evaluate
// alerts, advance the hashrate baseline, refresh the device, update the
// cache.
func (e *Engine) applySuccess(device *api.Device, stats *api.DeviceStats) []Alert {
	var alerts []Alert

	if a := evalTemperature(device, stats, e.config.TempThreshold); a != nil {
		alerts = append(alerts, *a)
	}

	prev, hasPrev := e.st.prevHashrates[device.IP]
	if a := evalHashrateDrop(device, stats, prev, hasPrev, e.config.HashrateDropThreshold); a != nil {
		alerts = append(alerts, *a)
	}
	// Baseline advances whether or not an alert fired
	e.st.prevHashrates[device.IP] = stats.Hashrate

	device.Status = api.StatusOnline
	device.Stats = stats
	device.Touch(stats.Timestamp)
	e.cache.Upsert(device)
	e.cache.RecordStats(device.IP, stats)

	if e.recorder != nil {
		if err := e.recorder.Record(device, stats); err != nil {
			logging.Warn("Failed to record stats history", zap.Error(err))
		}
	}

	return alerts
}

// applyFailure marks a device offline. The alert fires only on the
// transition; an already-offline device fails silently.
func (e *Engine) applyFailure(device *api.Device, now time.Time) []Alert {
	wasOnline := device.Status != api.StatusOffline
	device.Status = api.StatusOffline
	device.Stats = nil
	e.cache.MarkProbeFailed(device.IP)

	if !wasOnline {
		return nil
	}
	return []Alert{*offlineAlert(device, now)}
}

// deviceList returns a sorted copy of the current device view
func (e *Engine) deviceList() []*api.Device {
	out := make([]*api.Device, 0, len(e.st.devices))
	for _, d := range e.st.devices {
		copied := *d
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return api.LessIP(out[i].IP, out[j].IP) })
	return out
}

// Alerts returns a copy of the retained alert history
func (e *Engine) Alerts() []Alert {
	out := make([]Alert, len(e.st.alerts))
	copy(out, e.st.alerts)
	return out
}
