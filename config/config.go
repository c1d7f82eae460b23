package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Agencies   AgenciesConfig   `yaml:"agencies"`
	Refresh    RefreshConfig    `yaml:"refresh"`
	Database   DatabaseConfig   `yaml:"database"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// AgenciesConfig groups the per-agency upstream settings.
type AgenciesConfig struct {
	HDB HDBConfig `yaml:"hdb"`
	LTA LTAConfig `yaml:"lta"`
	URA URAConfig `yaml:"ura"`

	TimeoutSeconds int           `yaml:"timeout_seconds"`
	Timeout        time.Duration `yaml:"-"` // Derived from TimeoutSeconds.
	HTTPProxy      string        `yaml:"http_proxy"`
}

// HDBConfig holds the data.gov.sg carpark availability endpoint. No key required.
type HDBConfig struct {
	URL string `yaml:"url"`
}

// LTAConfig holds the LTA DataMall endpoint and account key.
type LTAConfig struct {
	URL        string `yaml:"url"`
	AccountKey string `yaml:"account_key"`
}

// URAConfig holds the URA endpoint and its two credentials. The upstream
// rejects requests without a browser-looking User-Agent, so one is configurable.
type URAConfig struct {
	URL       string `yaml:"url"`
	AccessKey string `yaml:"access_key"`
	Token     string `yaml:"token"`
	UserAgent string `yaml:"user_agent"`
}

// RefreshConfig controls the reconciliation cycle.
type RefreshConfig struct {
	Enabled         bool          `yaml:"enabled"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"`
	// BatchSize caps how many catalog writes are in flight at once during the
	// apply phase. It must not exceed database.max_open_conns.
	BatchSize           int           `yaml:"batch_size"`
	CycleTimeoutSeconds int           `yaml:"cycle_timeout_seconds"`
	CycleTimeout        time.Duration `yaml:"-"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// Load reads the configuration from the given path and applies defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.Agencies.HDB.URL == "" {
		cfg.Agencies.HDB.URL = "https://api.data.gov.sg/v1/transport/carpark-availability"
	}
	if cfg.Agencies.LTA.URL == "" {
		cfg.Agencies.LTA.URL = "https://datamall2.mytransport.sg/ltaodataservice/CarParkAvailabilityv2"
	}
	if cfg.Agencies.URA.URL == "" {
		cfg.Agencies.URA.URL = "https://www.ura.gov.sg/uraDataService/invokeUraDS?service=Car_Park_Availability"
	}
	if cfg.Agencies.URA.UserAgent == "" {
		cfg.Agencies.URA.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"
	}
	if cfg.Agencies.TimeoutSeconds <= 0 {
		cfg.Agencies.TimeoutSeconds = 30
	}
	cfg.Agencies.Timeout = time.Duration(cfg.Agencies.TimeoutSeconds) * time.Second

	if cfg.Refresh.IntervalSeconds <= 0 {
		cfg.Refresh.IntervalSeconds = 300
	}
	cfg.Refresh.Interval = time.Duration(cfg.Refresh.IntervalSeconds) * time.Second

	if cfg.Refresh.BatchSize <= 0 {
		cfg.Refresh.BatchSize = 20
	}
	if cfg.Database.MaxOpenConns > 0 && cfg.Refresh.BatchSize > cfg.Database.MaxOpenConns {
		return nil, fmt.Errorf("refresh.batch_size (%d) exceeds database.max_open_conns (%d)",
			cfg.Refresh.BatchSize, cfg.Database.MaxOpenConns)
	}

	if cfg.Refresh.CycleTimeoutSeconds <= 0 {
		cfg.Refresh.CycleTimeoutSeconds = 120
	}
	cfg.Refresh.CycleTimeout = time.Duration(cfg.Refresh.CycleTimeoutSeconds) * time.Second

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}
	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 60
	}

	return &cfg, nil
}
