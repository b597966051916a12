package main

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/spf13/cobra"

	"github.com/axefleet/axectl/internal/api"
	"github.com/axefleet/axectl/internal/output"
)

// Control command flags
var (
	stratumURLFlag  string
	stratumPortFlag int
	frequencyFlag   int
	coreVoltageFlag int
	hostnameFlag    string
)

// Bulk command flags
var (
	bulkTypeFlag string
	yesFlag      bool
)

func init() {
	controlCmd.AddCommand(restartCmd)
	controlCmd.AddCommand(fanSpeedCmd)
	controlCmd.AddCommand(settingsCmd)
	controlCmd.AddCommand(wifiScanCmd)
	controlCmd.AddCommand(logsCmd)

	settingsCmd.Flags().StringVar(&stratumURLFlag, "stratum-url", "", "Pool stratum URL")
	settingsCmd.Flags().IntVar(&stratumPortFlag, "stratum-port", 0, "Pool stratum port")
	settingsCmd.Flags().StringVar(&hostnameFlag, "hostname", "", "Device hostname")
	settingsCmd.Flags().IntVar(&frequencyFlag, "frequency", 0, "ASIC frequency in MHz")
	settingsCmd.Flags().IntVar(&coreVoltageFlag, "core-voltage", 0, "ASIC core voltage in mV")

	bulkCmd.Flags().StringVar(&bulkTypeFlag, "type", "", "Only target devices of this type")
	bulkCmd.Flags().BoolVarP(&yesFlag, "yes", "y", false, "Skip the confirmation prompt")

	rootCmd.AddCommand(controlCmd)
	rootCmd.AddCommand(bulkCmd)
}

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Send control commands to one miner",
	Long: `Send a control command to a single device: restart it, adjust the
fan, change pool or tuning settings, scan for WiFi networks, or stream
the device log over its websocket.`,
}

var restartCmd = &cobra.Command{
	Use:     "restart <ip|hostname>",
	Short:   "Restart a miner",
	Example: `  axectl control restart 192.168.1.37`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newRenderer()
		if err != nil {
			return err
		}
		_, deviceCache, err := loadConfigAndCache()
		if err != nil {
			return err
		}
		ip, err := resolveAddress(deviceCache, args[0])
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		if err := api.NewClient(ip).Restart(ctx); err != nil {
			return err
		}
		r.Successf("Restart sent to %s", ip)
		return nil
	},
}

var fanSpeedCmd = &cobra.Command{
	Use:   "set-fan-speed <ip|hostname> <percent>",
	Short: "Set a miner's fan speed",
	Long: `Set the fan to a fixed speed percentage. This disables automatic
fan control; restore it from the device web UI or with update-settings.`,
	Example: `  axectl control set-fan-speed 192.168.1.37 80`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newRenderer()
		if err != nil {
			return err
		}
		_, deviceCache, err := loadConfigAndCache()
		if err != nil {
			return err
		}
		ip, err := resolveAddress(deviceCache, args[0])
		if err != nil {
			return err
		}
		percent, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid fan speed %q: %w", args[1], err)
		}

		ctx, cancel := signalContext()
		defer cancel()

		if err := api.NewClient(ip).SetFanSpeed(ctx, percent); err != nil {
			return err
		}
		r.Successf("Fan speed on %s set to %d%% (auto fan control disabled)", ip, percent)
		return nil
	},
}

var settingsCmd = &cobra.Command{
	Use:   "update-settings <ip|hostname>",
	Short: "Update pool and tuning settings",
	Long: `Apply a partial settings update. Only the flags you pass are sent;
everything else keeps its current value. Most settings take effect
after the next restart.`,
	Example: `  # Point a miner at a different pool
  axectl control update-settings 192.168.1.37 \
      --stratum-url solo.ckpool.org --stratum-port 3333

  # Overclock
  axectl control update-settings 192.168.1.37 --frequency 525 --core-voltage 1200`,
	Args: cobra.ExactArgs(1),
	RunE: runUpdateSettings,
}

func runUpdateSettings(cmd *cobra.Command, args []string) error {
	r, err := newRenderer()
	if err != nil {
		return err
	}
	_, deviceCache, err := loadConfigAndCache()
	if err != nil {
		return err
	}
	ip, err := resolveAddress(deviceCache, args[0])
	if err != nil {
		return err
	}

	settings := &api.SystemSettings{}
	changed := false
	if cmd.Flags().Changed("stratum-url") {
		settings.StratumURL = &stratumURLFlag
		changed = true
	}
	if cmd.Flags().Changed("stratum-port") {
		settings.StratumPort = &stratumPortFlag
		changed = true
	}
	if cmd.Flags().Changed("hostname") {
		settings.Hostname = &hostnameFlag
		changed = true
	}
	if cmd.Flags().Changed("frequency") {
		settings.Frequency = &frequencyFlag
		changed = true
	}
	if cmd.Flags().Changed("core-voltage") {
		settings.CoreVoltage = &coreVoltageFlag
		changed = true
	}
	if !changed {
		return fmt.Errorf("no settings given; see 'axectl control update-settings --help'")
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := api.NewClient(ip).UpdateSettings(ctx, settings); err != nil {
		return err
	}
	r.Successf("Settings updated on %s (restart the device to apply)", ip)
	return nil
}

var wifiScanCmd = &cobra.Command{
	Use:     "wifi-scan <ip|hostname>",
	Short:   "Scan for WiFi networks visible to a miner",
	Example: `  axectl control wifi-scan 192.168.1.37`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newRenderer()
		if err != nil {
			return err
		}
		_, deviceCache, err := loadConfigAndCache()
		if err != nil {
			return err
		}
		ip, err := resolveAddress(deviceCache, args[0])
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		networks, err := api.NewClient(ip).WifiScan(ctx)
		if err != nil {
			return err
		}
		if r.Format == output.FormatJSON {
			return r.JSON(networks)
		}
		if len(networks) == 0 {
			r.Infof("No networks found.")
			return nil
		}
		for _, n := range networks {
			r.Infof("%-32s %d dBm  auth %d", n.SSID, n.RSSI, n.AuthMode)
		}
		return nil
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs <ip|hostname>",
	Short: "Stream a miner's log output",
	Long: `Attach to the device's websocket log stream and print lines as
they arrive. Interrupt with Ctrl-C.`,
	Example: `  axectl control logs 192.168.1.37`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, deviceCache, err := loadConfigAndCache()
		if err != nil {
			return err
		}
		ip, err := resolveAddress(deviceCache, args[0])
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		err = api.NewClient(ip).StreamLogs(ctx, func(line string) {
			fmt.Println(line)
		})
		if ctx.Err() != nil {
			return nil
		}
		return err
	},
}

var bulkCmd = &cobra.Command{
	Use:   "bulk <restart|set-fan-speed> [args]",
	Short: "Run a control command across the fleet",
	Long: `Run restart or set-fan-speed against every cached online device,
optionally filtered by type. Commands run concurrently; failures on
individual devices are reported but do not stop the rest.`,
	Example: `  # Restart every online miner
  axectl bulk restart --yes

  # Pin all Gamma fans to 100%
  axectl bulk set-fan-speed 100 --type gamma`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBulk,
}

func runBulk(cmd *cobra.Command, args []string) error {
	r, err := newRenderer()
	if err != nil {
		return err
	}
	_, deviceCache, err := loadConfigAndCache()
	if err != nil {
		return err
	}

	action := args[0]
	var percent int
	switch action {
	case "restart":
		if len(args) != 1 {
			return fmt.Errorf("restart takes no arguments")
		}
	case "set-fan-speed":
		if len(args) != 2 {
			return fmt.Errorf("set-fan-speed needs a percentage argument")
		}
		percent, err = strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid fan speed %q: %w", args[1], err)
		}
	default:
		return fmt.Errorf("unknown bulk action %q (expected restart or set-fan-speed)", action)
	}

	filter := &api.DeviceFilter{}
	if bulkTypeFlag != "" {
		t, ok := api.ParseDeviceType(bulkTypeFlag)
		if !ok {
			return fmt.Errorf("unknown device type %q", bulkTypeFlag)
		}
		filter.Types = []api.DeviceType{t}
	}

	var targets []*api.Device
	for _, d := range deviceCache.Devices() {
		if filter.Matches(d) {
			targets = append(targets, d)
		}
	}
	if len(targets) == 0 {
		r.Infof("No matching online devices in the cache.")
		return nil
	}

	if !yesFlag {
		fmt.Printf("About to run %q on %d device(s). Continue? [y/N] ", action, len(targets))
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" && answer != "yes" {
			r.Infof("Aborted.")
			return nil
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	type result struct {
		device *api.Device
		err    error
	}
	results := make([]result, len(targets))

	var wg sync.WaitGroup
	for i, d := range targets {
		wg.Add(1)
		go func(i int, d *api.Device) {
			defer wg.Done()
			client := api.NewClient(d.IP)
			var err error
			switch action {
			case "restart":
				err = client.Restart(ctx)
			case "set-fan-speed":
				err = client.SetFanSpeed(ctx, percent)
			}
			results[i] = result{device: d, err: err}
		}(i, d)
	}
	wg.Wait()

	failed := 0
	for _, res := range results {
		if res.err != nil {
			failed++
			r.Errorf("%s (%s): %v", res.device.DisplayName(), res.device.IP, res.err)
		} else {
			r.Successf("%s (%s)", res.device.DisplayName(), res.device.IP)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d device(s) failed", failed, len(targets))
	}
	return nil
}
