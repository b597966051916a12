package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/axefleet/axectl/internal/api"
	"github.com/axefleet/axectl/internal/cache"
	"github.com/axefleet/axectl/internal/config"
	"github.com/axefleet/axectl/internal/discovery"
	"github.com/axefleet/axectl/internal/logging"
	"github.com/axefleet/axectl/internal/output"
)

// Global flags (persistent on root)
var (
	formatFlag   string
	noColorFlag  bool
	verboseFlag  bool
	cacheDirFlag string
)

// Discovery command flags
var (
	networkFlag  string
	timeoutFlag  time.Duration
	parallelFlag int
	noMdnsFlag   bool
)

// List/stats command flags
var (
	typeFlag          string
	allFlag           bool
	watchFlag         bool
	statsIntervalFlag time.Duration
)

func init() {
	rootCmd.PersistentFlags().StringVar(&formatFlag, "format", "text", "Output format (text, json)")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable debug logging to stderr")
	rootCmd.PersistentFlags().StringVar(&cacheDirFlag, "cache-dir", "", "Device cache directory (default: OS cache dir)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if verboseFlag {
			return logging.Initialize("debug")
		}
		return logging.InitializeFromEnv()
	}

	discoverCmd.Flags().StringVar(&networkFlag, "network", "", "Network range to scan in CIDR notation (default: auto-detect)")
	discoverCmd.Flags().DurationVar(&timeoutFlag, "timeout", 500*time.Millisecond, "Per-host probe timeout")
	discoverCmd.Flags().IntVar(&parallelFlag, "parallel", 50, "Maximum concurrent probes")
	discoverCmd.Flags().BoolVar(&noMdnsFlag, "no-mdns", false, "Skip the mDNS browse stage")

	listCmd.Flags().StringVar(&typeFlag, "type", "", "Filter by device type (bitaxe-ultra, max, gamma, nerdqaxe)")
	listCmd.Flags().BoolVar(&allFlag, "all", false, "Include devices that were not reachable recently")

	statsCmd.Flags().BoolVar(&watchFlag, "watch", false, "Refresh stats until interrupted")
	statsCmd.Flags().DurationVar(&statsIntervalFlag, "interval", 5*time.Second, "Refresh cadence for --watch")

	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statsCmd)
}

// newRenderer builds the output renderer from the global flags
func newRenderer() (*output.Renderer, error) {
	format, err := output.ParseFormat(formatFlag)
	if err != nil {
		return nil, err
	}
	return output.NewRenderer(os.Stdout, format, noColorFlag), nil
}

// loadConfigAndCache resolves the settings file and opens the device cache
func loadConfigAndCache() (*config.Config, *cache.Cache, error) {
	configPath, err := config.GetConfigPath()
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	cacheDir, err := cfg.ResolveCacheDir(cacheDirFlag)
	if err != nil {
		return nil, nil, err
	}
	deviceCache, err := cache.Load(cacheDir)
	if err != nil {
		return nil, nil, err
	}
	return cfg, deviceCache, nil
}

// signalContext returns a context cancelled by SIGINT/SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// discoverCmd runs one full discovery cycle
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover miners on the local network",
	Long: `Discover miners by combining three stages:

  1. mDNS browse for advertised AxeOS services
  2. Quick re-probe of previously cached addresses
  3. Full HTTP scan of the network range

Results are merged (earlier stages win on conflicts) and written to the
device cache for later commands.`,
	Example: `  # Auto-detect the local /24 and scan it
  axectl discover

  # Scan a specific range with a longer probe timeout
  axectl discover --network 10.0.0.0/24 --timeout 2s

  # Skip mDNS on networks that block multicast
  axectl discover --no-mdns`,
	RunE: runDiscover,
}

func runDiscover(cmd *cobra.Command, args []string) error {
	r, err := newRenderer()
	if err != nil {
		return err
	}
	cfg, deviceCache, err := loadConfigAndCache()
	if err != nil {
		return err
	}

	network := networkFlag
	if network == "" {
		network = cfg.DefaultNetwork
	}

	opts := discovery.Options{
		Network:          network,
		Timeout:          timeoutFlag,
		MaxParallel:      parallelFlag,
		MdnsEnabled:      !noMdnsFlag,
		ServiceNames:     cfg.ServiceNames,
		FallbackNetworks: cfg.FallbackNetworks,
	}

	ctx, cancel := signalContext()
	defer cancel()

	coordinator := discovery.NewCoordinator(deviceCache, opts)
	devices, info, err := coordinator.Discover(ctx, opts)
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}

	return r.Discovery(devices, info)
}

// listCmd shows cached devices without touching the network
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List known miners from the device cache",
	Long: `List devices found by previous discovery runs.

This command reads only the local cache; run 'axectl discover' first to
populate it. Offline devices are hidden unless --all is set.`,
	Example: `  # List online devices
  axectl list

  # Include devices that have gone quiet
  axectl list --all

  # Only NerdQaxe units, as JSON
  axectl list --type nerdqaxe --format json`,
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	r, err := newRenderer()
	if err != nil {
		return err
	}
	_, deviceCache, err := loadConfigAndCache()
	if err != nil {
		return err
	}

	filter, err := buildFilter()
	if err != nil {
		return err
	}

	var devices []*api.Device
	for _, d := range deviceCache.Devices() {
		if filter.Matches(d) {
			devices = append(devices, d)
		}
	}

	if err := r.Devices(devices); err != nil {
		return err
	}
	if r.Format == output.FormatText && len(devices) > 1 {
		r.Infof("")
		return r.Summary(devices)
	}
	return nil
}

// buildFilter converts the --type/--all flags into a filter
func buildFilter() (*api.DeviceFilter, error) {
	filter := &api.DeviceFilter{IncludeOffline: allFlag}
	if typeFlag != "" {
		t, ok := api.ParseDeviceType(typeFlag)
		if !ok {
			return nil, fmt.Errorf("unknown device type %q", typeFlag)
		}
		filter.Types = []api.DeviceType{t}
	}
	return filter, nil
}

// statsCmd fetches live stats from one device, or every known device
var statsCmd = &cobra.Command{
	Use:   "stats [ip|hostname]",
	Short: "Show live miner statistics",
	Long: `Fetch the current system info from a device and display its mining
statistics. The device may be named by IP address or by the hostname
recorded in the device cache. Without an argument, every known device
is queried and shown as a fleet table.`,
	Example: `  # One-shot stats by IP
  axectl stats 192.168.1.37

  # By cached hostname, refreshing until Ctrl-C
  axectl stats bitaxe-garage --watch

  # The whole fleet, refreshing every 10 seconds
  axectl stats --watch --interval 10s`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	r, err := newRenderer()
	if err != nil {
		return err
	}
	_, deviceCache, err := loadConfigAndCache()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	show := func() error { return showAllStats(ctx, r, deviceCache) }
	if len(args) == 1 {
		ip, err := resolveAddress(deviceCache, args[0])
		if err != nil {
			return err
		}
		show = func() error { return showStats(ctx, r, deviceCache, ip) }
	}

	if !watchFlag {
		return show()
	}
	if statsIntervalFlag <= 0 {
		return fmt.Errorf("--interval must be positive, got %s", statsIntervalFlag)
	}

	ticker := time.NewTicker(statsIntervalFlag)
	defer ticker.Stop()
	for {
		if err := show(); err != nil {
			r.Errorf("%v", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func showStats(ctx context.Context, r *output.Renderer, deviceCache *cache.Cache, ip string) error {
	client := api.NewClient(ip)
	device, err := client.FetchIdentity(ctx)
	if err != nil {
		return err
	}

	deviceCache.Upsert(device)
	deviceCache.RecordStats(ip, device.Stats)
	if err := deviceCache.Save(); err != nil {
		logging.Warn("cache save failed")
	}

	return r.DeviceStats(device)
}

// showAllStats refreshes every cached device concurrently and renders the
// fleet table. Unreachable devices stay in the table as offline.
func showAllStats(ctx context.Context, r *output.Renderer, deviceCache *cache.Cache) error {
	cached := deviceCache.Devices()
	if len(cached) == 0 {
		r.Infof("No known devices. Run 'axectl discover' first.")
		return nil
	}

	devices := make([]*api.Device, len(cached))
	var wg sync.WaitGroup
	for i, d := range cached {
		wg.Add(1)
		go func(i int, d *api.Device) {
			defer wg.Done()

			client := api.NewClient(d.IP)
			fresh, err := client.FetchIdentity(ctx)
			if err != nil {
				deviceCache.MarkProbeFailed(d.IP)
				d.Status = api.StatusOffline
				devices[i] = d
				return
			}
			deviceCache.Upsert(fresh)
			deviceCache.RecordStats(fresh.IP, fresh.Stats)
			devices[i] = fresh
		}(i, d)
	}
	wg.Wait()

	if err := deviceCache.Save(); err != nil {
		logging.Warn("cache save failed")
	}

	if err := r.Devices(devices); err != nil {
		return err
	}
	if r.Format == output.FormatText && len(devices) > 1 {
		r.Infof("")
		return r.Summary(devices)
	}
	return nil
}

// resolveAddress turns an IP literal or cached hostname into an IP
func resolveAddress(deviceCache *cache.Cache, target string) (string, error) {
	if d := deviceCache.Get(target); d != nil {
		return d.IP, nil
	}
	for _, d := range deviceCache.Devices() {
		if d.Hostname == target {
			return d.IP, nil
		}
	}
	// Not cached: treat the argument as a literal address
	return target, nil
}
