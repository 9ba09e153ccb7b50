// Package config tests for defaults, file and env layering.
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestLoad_defaults verifies the zero-file configuration.
func TestLoad_defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ListenAddr != ":8090" {
		t.Errorf("ListenAddr = %q, want :8090", cfg.ListenAddr)
	}
	if cfg.Sync.Interval != 30*time.Second {
		t.Errorf("Sync.Interval = %s, want 30s", cfg.Sync.Interval)
	}
	if cfg.Sync.MaxRetries != 3 {
		t.Errorf("Sync.MaxRetries = %d, want 3", cfg.Sync.MaxRetries)
	}
	if cfg.Sync.Strategy != "use_server" {
		t.Errorf("Sync.Strategy = %q, want use_server", cfg.Sync.Strategy)
	}
	if cfg.Cache.ImageLimit != 100 || cfg.Cache.APILimit != 30 || cfg.Cache.DynamicLimit != 50 {
		t.Errorf("cache limits = %d/%d/%d, want 100/30/50",
			cfg.Cache.ImageLimit, cfg.Cache.APILimit, cfg.Cache.DynamicLimit)
	}
	if cfg.Cache.APITimeout != 5*time.Second {
		t.Errorf("Cache.APITimeout = %s, want 5s", cfg.Cache.APITimeout)
	}
	if cfg.Telemetry.Enabled {
		t.Error("Telemetry.Enabled = true, want opt-in default off")
	}
	if len(cfg.Cache.APIAllowList) == 0 {
		t.Error("Cache.APIAllowList empty, want default routes")
	}
}

// TestLoad_envOverride verifies PETCHECKY_* environment wins over
// defaults.
func TestLoad_envOverride(t *testing.T) {
	t.Setenv("PETCHECKY_LISTEN_ADDR", ":9999")
	t.Setenv("PETCHECKY_SYNC_MAX_RETRIES", "5")
	t.Setenv("PETCHECKY_SYNC_STRATEGY", "merge")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ListenAddr != ":9999" {
		t.Errorf("ListenAddr = %q, want :9999", cfg.ListenAddr)
	}
	if cfg.Sync.MaxRetries != 5 {
		t.Errorf("Sync.MaxRetries = %d, want 5", cfg.Sync.MaxRetries)
	}
	if cfg.Sync.Strategy != "merge" {
		t.Errorf("Sync.Strategy = %q, want merge", cfg.Sync.Strategy)
	}
}

// TestLoad_file verifies YAML values are layered under env.
func TestLoad_file(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "offlined.yaml")
	yaml := `
listenAddr: ":7070"
sync:
  interval: 10s
  strategy: use_local
cache:
  imageLimit: 10
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ListenAddr != ":7070" {
		t.Errorf("ListenAddr = %q, want :7070", cfg.ListenAddr)
	}
	if cfg.Sync.Interval != 10*time.Second {
		t.Errorf("Sync.Interval = %s, want 10s", cfg.Sync.Interval)
	}
	if cfg.Sync.Strategy != "use_local" {
		t.Errorf("Sync.Strategy = %q, want use_local", cfg.Sync.Strategy)
	}
	if cfg.Cache.ImageLimit != 10 {
		t.Errorf("Cache.ImageLimit = %d, want 10", cfg.Cache.ImageLimit)
	}
	// Unset values keep their defaults.
	if cfg.Sync.MaxRetries != 3 {
		t.Errorf("Sync.MaxRetries = %d, want default 3", cfg.Sync.MaxRetries)
	}
}

// TestLoad_invalidStrategy verifies validation rejects unknown
// strategies.
func TestLoad_invalidStrategy(t *testing.T) {
	t.Setenv("PETCHECKY_SYNC_STRATEGY", "manual")

	if _, err := Load(""); err == nil {
		t.Error("Load() error = nil, want strategy validation failure")
	}
}

// TestLoad_missingFile verifies an explicit path must exist.
func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() error = nil, want read failure")
	}
}
