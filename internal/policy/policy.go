// Package policy holds the broker's runtime configuration: env-var defaults
// layered under an optional YAML file, exposed through a Policy type with
// concurrency-safe accessors (a config hot-reload swaps the whole Config;
// callers that read a value once at startup, such as the store URL, keep
// the value they read).
package policy

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the broker's tunables. Every field maps to an env var of the
// same concern; YAML (if BROKER_CONFIG points at a file) overrides env-var
// defaults at load time.
type Config struct {
	StoreURL string `yaml:"store_url"`
	LogLevel string `yaml:"log_level"`

	HeartbeatTimeoutSeconds int `yaml:"heartbeat_timeout_seconds"`
	MonitorIntervalSeconds  int `yaml:"monitor_interval_seconds"`

	StatusDir                     string `yaml:"status_dir"`
	MaxQueueLen                   int    `yaml:"max_queue_len"`
	RecentChangesCap              int    `yaml:"recent_changes_cap"`
	StoreReconnectDeadlineSeconds int    `yaml:"store_reconnect_deadline_seconds"`

	QueryTimeoutSeconds int `yaml:"query_timeout_seconds"`
}

// DefaultConfig mirrors the spec's stated defaults.
func DefaultConfig() *Config {
	return &Config{
		StoreURL:                      "memory://",
		LogLevel:                      "info",
		HeartbeatTimeoutSeconds:       90,
		MonitorIntervalSeconds:        30,
		StatusDir:                     "/tmp/splitmind-status",
		MaxQueueLen:                   1000,
		RecentChangesCap:              100,
		StoreReconnectDeadlineSeconds: 30,
		QueryTimeoutSeconds:           30,
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// LoadConfig builds a Config from env-var defaults, then applies the YAML
// file at path (if non-empty) on top. A missing or unreadable YAML file is
// not an error: env-var/default values still apply.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.StoreURL = envString("STORE_URL", cfg.StoreURL)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.HeartbeatTimeoutSeconds = envInt("HEARTBEAT_TIMEOUT", cfg.HeartbeatTimeoutSeconds)
	cfg.MonitorIntervalSeconds = envInt("MONITOR_INTERVAL", cfg.MonitorIntervalSeconds)
	cfg.StatusDir = envString("STATUS_DIR", cfg.StatusDir)
	cfg.MaxQueueLen = envInt("MAX_QUEUE_LEN", cfg.MaxQueueLen)
	cfg.RecentChangesCap = envInt("RECENT_CHANGES_CAP", cfg.RecentChangesCap)
	cfg.StoreReconnectDeadlineSeconds = envInt("STORE_RECONNECT_DEADLINE", cfg.StoreReconnectDeadlineSeconds)
	cfg.QueryTimeoutSeconds = envInt("QUERY_TIMEOUT", cfg.QueryTimeoutSeconds)

	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Policy wraps a Config behind a mutex so a config-file hot-reload can swap
// it out while tool handlers are reading it concurrently.
type Policy struct {
	mu     sync.RWMutex
	config *Config
}

// New wraps cfg in a Policy.
func New(cfg *Config) *Policy {
	return &Policy{config: cfg}
}

// Replace atomically swaps in a newly loaded Config, e.g. after a
// BROKER_CONFIG file change is observed.
func (p *Policy) Replace(cfg *Config) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.config = cfg
}

func (p *Policy) StoreURL() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.config.StoreURL
}

func (p *Policy) LogLevel() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.config.LogLevel
}

func (p *Policy) HeartbeatTimeout() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return time.Duration(p.config.HeartbeatTimeoutSeconds) * time.Second
}

func (p *Policy) MonitorInterval() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return time.Duration(p.config.MonitorIntervalSeconds) * time.Second
}

func (p *Policy) StatusDir() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.config.StatusDir
}

func (p *Policy) MaxQueueLen() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.config.MaxQueueLen
}

func (p *Policy) RecentChangesCap() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.config.RecentChangesCap
}

func (p *Policy) StoreReconnectDeadline() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return time.Duration(p.config.StoreReconnectDeadlineSeconds) * time.Second
}

func (p *Policy) QueryTimeout() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return time.Duration(p.config.QueryTimeoutSeconds) * time.Second
}
