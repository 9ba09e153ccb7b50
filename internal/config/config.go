// Package config loads the daemon configuration from an optional YAML
// file plus environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// StorageConfig holds the durable store settings.
type StorageConfig struct {
	DataDir string `mapstructure:"dataDir"`
}

// SyncConfig tunes the sync engine and scheduler.
type SyncConfig struct {
	APIBaseURL string        `mapstructure:"apiBaseUrl"`
	Interval   time.Duration `mapstructure:"interval"`
	MaxRetries int           `mapstructure:"maxRetries"`
	Strategy   string        `mapstructure:"strategy"`
}

// CacheConfig tunes the request cache layer.
type CacheConfig struct {
	ImageLimit      int           `mapstructure:"imageLimit"`
	APILimit        int           `mapstructure:"apiLimit"`
	DynamicLimit    int           `mapstructure:"dynamicLimit"`
	APITimeout      time.Duration `mapstructure:"apiTimeout"`
	APIAllowList    []string      `mapstructure:"apiAllowList"`
	ShellPaths      []string      `mapstructure:"shellPaths"`
	OfflinePagePath string        `mapstructure:"offlinePagePath"`
}

// TelemetryConfig tunes the opt-in usage reporting.
type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// Config is the daemon's full configuration.
type Config struct {
	ListenAddr string          `mapstructure:"listenAddr"`
	LogLevel   string          `mapstructure:"logLevel"`
	Storage    StorageConfig   `mapstructure:"storage"`
	Sync       SyncConfig      `mapstructure:"sync"`
	Cache      CacheConfig     `mapstructure:"cache"`
	Telemetry  TelemetryConfig `mapstructure:"telemetry"`
}

// Load reads configuration from path (optional; "" skips the file), then
// applies PETCHECKY_* environment overrides on top of the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("listenAddr", ":8090")
	v.SetDefault("logLevel", "info")
	v.SetDefault("storage.dataDir", defaultDataDir())
	v.SetDefault("sync.apiBaseUrl", "http://localhost:8080")
	v.SetDefault("sync.interval", 30*time.Second)
	v.SetDefault("sync.maxRetries", 3)
	v.SetDefault("sync.strategy", "use_server")
	v.SetDefault("cache.imageLimit", 100)
	v.SetDefault("cache.apiLimit", 30)
	v.SetDefault("cache.dynamicLimit", 50)
	v.SetDefault("cache.apiTimeout", 5*time.Second)
	v.SetDefault("cache.apiAllowList", []string{"/api/pets", "/api/albums", "/api/photos", "/api/chats"})
	v.SetDefault("cache.shellPaths", []string{"/", "/index.html", "/manifest.json"})
	v.SetDefault("cache.offlinePagePath", "/offline.html")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "")

	v.BindEnv("listenAddr", "PETCHECKY_LISTEN_ADDR")
	v.BindEnv("logLevel", "PETCHECKY_LOG_LEVEL")
	v.BindEnv("storage.dataDir", "PETCHECKY_DATA_DIR")
	v.BindEnv("sync.apiBaseUrl", "PETCHECKY_API_BASE_URL")
	v.BindEnv("sync.interval", "PETCHECKY_SYNC_INTERVAL")
	v.BindEnv("sync.maxRetries", "PETCHECKY_SYNC_MAX_RETRIES")
	v.BindEnv("sync.strategy", "PETCHECKY_SYNC_STRATEGY")
	v.BindEnv("cache.apiTimeout", "PETCHECKY_CACHE_API_TIMEOUT")
	v.BindEnv("telemetry.enabled", "PETCHECKY_TELEMETRY_ENABLED")
	v.BindEnv("telemetry.endpoint", "PETCHECKY_TELEMETRY_ENDPOINT")

	if path != "" {
		filename := filepath.Base(path)
		v.AddConfigPath(filepath.Dir(path))
		v.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("unable to read config file: %w", err)
		}
	}

	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	if err := validate(&conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

func validate(c *Config) error {
	if c.Sync.Interval <= 0 {
		return fmt.Errorf("sync.interval must be positive, got %s", c.Sync.Interval)
	}
	if c.Sync.MaxRetries <= 0 {
		return fmt.Errorf("sync.maxRetries must be positive, got %d", c.Sync.MaxRetries)
	}
	if c.Cache.APITimeout <= 0 {
		return fmt.Errorf("cache.apiTimeout must be positive, got %s", c.Cache.APITimeout)
	}
	switch c.Sync.Strategy {
	case "use_local", "use_server", "merge":
	default:
		return fmt.Errorf("sync.strategy must be use_local, use_server or merge, got %q", c.Sync.Strategy)
	}
	return nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".petchecky", "offline")
}
