package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/axefleet/axectl/internal/api"
	"github.com/axefleet/axectl/internal/cache"
	"github.com/axefleet/axectl/internal/discovery"
	"github.com/axefleet/axectl/internal/monitor"
	"github.com/axefleet/axectl/internal/output"
	"github.com/axefleet/axectl/internal/storage"
	"github.com/axefleet/axectl/internal/tui"
)

// Monitor command flags
var (
	intervalFlag          time.Duration
	tempAlertFlag         float64
	hashrateAlertFlag     float64
	noStatsFlag           bool
	discoverFlag          bool
	discoverIntervalFlag  time.Duration
	monitorNetworkFlag    string
	monitorNoMdnsFlag     bool
	dbPathFlag            string
	plainFlag             bool
	monitorTypeFilterFlag string
	monitorAllFlag        bool
)

func init() {
	monitorCmd.Flags().DurationVar(&intervalFlag, "interval", 0, "Poll interval (default: from config, 30s)")
	monitorCmd.Flags().Float64Var(&tempAlertFlag, "temp-alert", -1, "Temperature alert threshold in °C (0 disables)")
	monitorCmd.Flags().Float64Var(&hashrateAlertFlag, "hashrate-alert", -1, "Hashrate drop alert threshold in percent (0 disables)")
	monitorCmd.Flags().BoolVar(&noStatsFlag, "no-stats", false, "Only track reachability, skip stats collection")
	monitorCmd.Flags().BoolVar(&discoverFlag, "discover", false, "Run periodic background discovery for new devices")
	monitorCmd.Flags().DurationVar(&discoverIntervalFlag, "discover-interval", 5*time.Minute, "Background discovery cadence")
	monitorCmd.Flags().StringVar(&monitorNetworkFlag, "network", "", "Network range for background discovery (default: auto-detect)")
	monitorCmd.Flags().BoolVar(&monitorNoMdnsFlag, "no-mdns", false, "Skip the mDNS stage of background discovery")
	monitorCmd.Flags().StringVar(&dbPathFlag, "db", "", "Record per-tick stats to this SQLite database")
	monitorCmd.Flags().BoolVar(&plainFlag, "plain", false, "Line-per-tick output instead of the full-screen view")
	monitorCmd.Flags().StringVar(&monitorTypeFilterFlag, "type-filter", "", "Only monitor devices of this type")
	monitorCmd.Flags().BoolVar(&monitorAllFlag, "all", false, "Keep polling devices that have gone offline")

	rootCmd.AddCommand(monitorCmd)
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Continuously monitor the fleet",
	Long: `Poll every known miner on a fixed interval and raise alerts on high
temperature, sudden hashrate drops, and devices going offline.

By default this shows a full-screen live view. Use --plain for plain
line output suitable for logs or non-interactive terminals. With
--discover, a background task periodically re-runs discovery and feeds
new devices into the running session.`,
	Example: `  # Monitor with defaults from the config file
  axectl monitor

  # Tighter thresholds, finding new devices as they appear
  axectl monitor --temp-alert 70 --hashrate-alert 10 --discover

  # Headless, recording history to SQLite
  axectl monitor --plain --db ~/.cache/axectl/stats.db`,
	RunE: runMonitor,
}

func runMonitor(cmd *cobra.Command, args []string) error {
	r, err := newRenderer()
	if err != nil {
		return err
	}
	cfg, deviceCache, err := loadConfigAndCache()
	if err != nil {
		return err
	}

	// Flags override config file values; negative sentinel means unset
	interval := intervalFlag
	if interval <= 0 {
		interval = time.Duration(cfg.Monitor.IntervalSeconds) * time.Second
	}
	tempThreshold := tempAlertFlag
	if tempThreshold < 0 {
		tempThreshold = cfg.Monitor.TempThreshold
	}
	hashrateDrop := hashrateAlertFlag
	if hashrateDrop < 0 {
		hashrateDrop = cfg.Monitor.HashrateDropPercent
	}

	filter := &api.DeviceFilter{IncludeOffline: monitorAllFlag}
	if monitorTypeFilterFlag != "" {
		t, ok := api.ParseDeviceType(monitorTypeFilterFlag)
		if !ok {
			return fmt.Errorf("unknown device type %q", monitorTypeFilterFlag)
		}
		filter.Types = []api.DeviceType{t}
	}

	network := monitorNetworkFlag
	if network == "" {
		network = cfg.DefaultNetwork
	}

	engineConfig := monitor.Config{
		Interval:              interval,
		TempThreshold:         tempThreshold,
		HashrateDropThreshold: hashrateDrop,
		Filter:                filter,
		CollectStats:          !noStatsFlag,
		DiscoveryEnabled:      discoverFlag,
		DiscoveryInterval:     discoverIntervalFlag,
		DiscoveryOptions: discovery.Options{
			Network:          network,
			MdnsEnabled:      !monitorNoMdnsFlag,
			ServiceNames:     cfg.ServiceNames,
			FallbackNetworks: cfg.FallbackNetworks,
		},
	}

	ctx, cancel := signalContext()
	defer cancel()

	if plainFlag {
		return runMonitorPlain(ctx, r, engineConfig, deviceCache)
	}
	return runMonitorTUI(ctx, engineConfig, deviceCache, interval)
}

// runMonitorPlain prints one block per tick to stdout
func runMonitorPlain(ctx context.Context, r *output.Renderer, cfg monitor.Config, deviceCache *cache.Cache) error {
	engine, err := monitor.NewEngine(cfg, deviceCache, func(ev monitor.Event) {
		summary := api.Summarize(ev.Devices)
		r.Infof("[%s] %d device(s), %d online, %s",
			ev.Time.Format("15:04:05"),
			summary.TotalDevices, summary.OnlineDevices,
			output.FormatHashrate(summary.TotalHashrate))
		for _, a := range ev.NewAlerts {
			r.Alert(a)
		}
	})
	if err != nil {
		return err
	}
	if err := attachRecorder(engine); err != nil {
		return err
	}
	return engine.Run(ctx)
}

// runMonitorTUI hosts the engine inside the full-screen view. The engine
// runs in its own goroutine and forwards every tick event into the
// bubbletea program; the program owns the terminal until quit.
func runMonitorTUI(ctx context.Context, cfg monitor.Config, deviceCache *cache.Cache, interval time.Duration) error {
	network := cfg.DiscoveryOptions.Network
	if network == "" {
		if r, err := discovery.DetectNetworkRange(); err == nil {
			network = r.String()
		} else {
			network = "auto"
		}
	}

	model := tui.NewMonitorModel(network, interval)
	program := tea.NewProgram(model, tea.WithAltScreen())

	engine, err := monitor.NewEngine(cfg, deviceCache, func(ev monitor.Event) {
		program.Send(tui.EventMsg{Event: ev})
	})
	if err != nil {
		return err
	}
	if err := attachRecorder(engine); err != nil {
		return err
	}

	engineCtx, engineCancel := context.WithCancel(ctx)
	defer engineCancel()
	go func() {
		if err := engine.Run(engineCtx); err != nil {
			program.Quit()
		}
	}()

	_, err = program.Run()
	return err
}

// attachRecorder wires the optional SQLite stats recorder
func attachRecorder(engine *monitor.Engine) error {
	if dbPathFlag == "" {
		return nil
	}
	db, err := storage.Open(dbPathFlag)
	if err != nil {
		return fmt.Errorf("opening stats database: %w", err)
	}
	engine.SetRecorder(db)
	return nil
}
