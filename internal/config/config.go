package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

const (
	appName    = "axectl"
	configFile = "config.yaml"

	// CurrentVersion is the supported settings file schema version
	CurrentVersion = 1
)

// MonitorDefaults are the default thresholds and cadence for the monitor
type MonitorDefaults struct {
	IntervalSeconds     int     `yaml:"interval_seconds"`
	TempThreshold       float64 `yaml:"temp_threshold"`
	HashrateDropPercent float64 `yaml:"hashrate_drop_percent"`
}

// Config is the on-disk settings file. Every field has a working default;
// the file only needs to exist when the user wants to change one.
type Config struct {
	Version int `yaml:"version"`

	// CacheDir overrides the device cache location
	CacheDir string `yaml:"cache_dir,omitempty"`

	// DefaultNetwork is a CIDR used instead of auto-detection
	DefaultNetwork string `yaml:"default_network,omitempty"`

	// FallbackNetworks are tried when auto-detection fails
	FallbackNetworks []string `yaml:"fallback_networks,omitempty"`

	// ServiceNames overrides the mDNS service types to browse
	ServiceNames []string `yaml:"service_names,omitempty"`

	Monitor MonitorDefaults `yaml:"monitor"`
}

// NewConfig returns the default configuration
func NewConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		FallbackNetworks: []string{
			"192.168.1.0/24",
			"192.168.0.0/24",
			"10.0.0.0/24",
		},
		Monitor: MonitorDefaults{
			IntervalSeconds:     30,
			TempThreshold:       75,
			HashrateDropPercent: 20,
		},
	}
}

// GetConfigDir returns the OS-appropriate configuration directory.
// This follows platform conventions:
//   - Linux: $XDG_CONFIG_HOME/axectl or $HOME/.config/axectl
//   - macOS: $HOME/.config/axectl (following XDG convention on macOS)
//   - Windows: %LOCALAPPDATA%\axectl
func GetConfigDir() (string, error) {
	return platformDir("XDG_CONFIG_HOME", ".config")
}

// GetCacheDir returns the OS-appropriate cache directory for the device
// cache (devices.json):
//   - Linux: $XDG_CACHE_HOME/axectl or $HOME/.cache/axectl
//   - macOS: $HOME/.cache/axectl
//   - Windows: %LOCALAPPDATA%\axectl
func GetCacheDir() (string, error) {
	return platformDir("XDG_CACHE_HOME", ".cache")
}

func platformDir(xdgVar, unixDefault string) (string, error) {
	if runtime.GOOS == "windows" {
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			userProfile := os.Getenv("USERPROFILE")
			if userProfile == "" {
				return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
			}
			return filepath.Join(userProfile, "AppData", "Local", appName), nil
		}
		return filepath.Join(localAppData, appName), nil
	}

	if dir := os.Getenv(xdgVar); dir != "" {
		return filepath.Join(dir, appName), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, unixDefault, appName), nil
}

// GetConfigPath returns the full path to the settings file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFile), nil
}

// Load reads the settings file at path, or the default location when path
// is empty. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = GetConfigPath()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := NewConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version: %d (expected %d)", cfg.Version, CurrentVersion)
	}
	return cfg, nil
}

// ResolveCacheDir picks the device cache directory: an explicit flag value
// wins, then the settings file, then the OS default.
func (c *Config) ResolveCacheDir(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if c.CacheDir != "" {
		return c.CacheDir, nil
	}
	return GetCacheDir()
}

// Save writes the settings file atomically to the default location
func (c *Config) Save() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# axectl configuration file
# Every field is optional; missing fields use built-in defaults.
#
# Location: ` + configPath + `

`)
	data = append(header, data...)

	tmpPath := configPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}
	if err := os.Rename(tmpPath, configPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}
