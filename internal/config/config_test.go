package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Version != CurrentVersion {
		t.Errorf("Version = %d", cfg.Version)
	}
	if cfg.Monitor.IntervalSeconds != 30 {
		t.Errorf("default interval = %d, want 30", cfg.Monitor.IntervalSeconds)
	}
	if len(cfg.FallbackNetworks) == 0 {
		t.Error("default fallback networks missing")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `version: 1
cache_dir: /var/lib/axectl
default_network: 10.1.0.0/24
monitor:
  interval_seconds: 10
  temp_threshold: 85
  hashrate_drop_percent: 15
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CacheDir != "/var/lib/axectl" {
		t.Errorf("CacheDir = %q", cfg.CacheDir)
	}
	if cfg.DefaultNetwork != "10.1.0.0/24" {
		t.Errorf("DefaultNetwork = %q", cfg.DefaultNetwork)
	}
	if cfg.Monitor.TempThreshold != 85 {
		t.Errorf("TempThreshold = %v", cfg.Monitor.TempThreshold)
	}
}

func TestLoadRejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("version: 99\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted unsupported version")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(":\t not yaml ["), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted malformed YAML")
	}
}

func TestResolveCacheDirPrecedence(t *testing.T) {
	cfg := NewConfig()
	cfg.CacheDir = "/from/config"

	got, err := cfg.ResolveCacheDir("/from/flag")
	if err != nil || got != "/from/flag" {
		t.Errorf("flag should win, got %q (%v)", got, err)
	}

	got, err = cfg.ResolveCacheDir("")
	if err != nil || got != "/from/config" {
		t.Errorf("config should win over default, got %q (%v)", got, err)
	}

	cfg.CacheDir = ""
	got, err = cfg.ResolveCacheDir("")
	if err != nil || got == "" {
		t.Errorf("OS default expected, got %q (%v)", got, err)
	}
}

func TestGetCacheDirHonorsXDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg-cache")

	dir, err := GetCacheDir()
	if err != nil {
		t.Fatalf("GetCacheDir: %v", err)
	}
	if dir != filepath.Join("/tmp/xdg-cache", "axectl") {
		t.Errorf("dir = %q", dir)
	}
}
