// Package config loads runtime configuration from a YAML file with
// environment variable overrides, the layering convention used throughout
// the teacher framework's feature packages: a checked-in default file for
// local development, overridable per-deployment via env vars without a
// redeploy.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// UsageCacheConfig controls the usage package's cost cache.
type UsageCacheConfig struct {
	// Backend selects the cache implementation: "inmem", "redis", or
	// "rmap".
	Backend string `yaml:"backend"`
	// TTLSeconds is how long a resolved Usage stays cached per completion
	// id.
	TTLSeconds int `yaml:"ttl_seconds"`
	RedisAddr  string `yaml:"redis_addr"`
}

// TTL returns the configured TTL as a time.Duration, defaulting to 300
// seconds when unset.
func (c UsageCacheConfig) TTL() time.Duration {
	if c.TTLSeconds <= 0 {
		return 300 * time.Second
	}
	return time.Duration(c.TTLSeconds) * time.Second
}

// RetryConfig controls the middleware package's retry behavior.
type RetryConfig struct {
	MaxAttempts     int `yaml:"max_attempts"`
	BaseDelayMillis int `yaml:"base_delay_millis"`
	MaxDelayMillis  int `yaml:"max_delay_millis"`
}

// SchedulerConfig controls scheduler.Scheduler sizing.
type SchedulerConfig struct {
	InputQueueCapacity   int `yaml:"input_queue_capacity"`
	SubscriberBufferSize int `yaml:"subscriber_buffer_size"`
}

// Config is the root configuration document.
type Config struct {
	UsageCache UsageCacheConfig `yaml:"usage_cache"`
	Retry      RetryConfig      `yaml:"retry"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
}

// Load reads a YAML document from path, then applies environment variable
// overrides on top of it. path may be empty, in which case defaults plus
// environment overrides apply.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// applyEnvOverrides mutates cfg in place from well-known environment
// variables, for deployment-time tuning without editing the checked-in
// YAML file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("USAGE_CACHE_BACKEND"); v != "" {
		cfg.UsageCache.Backend = v
	}
	if v, ok := envInt("USAGE_CACHE_TTL_SEC"); ok {
		cfg.UsageCache.TTLSeconds = v
	}
	if v := os.Getenv("USAGE_CACHE_REDIS_ADDR"); v != "" {
		cfg.UsageCache.RedisAddr = v
	}
	if v, ok := envInt("RETRY_MAX_ATTEMPTS"); ok {
		cfg.Retry.MaxAttempts = v
	}
	if v, ok := envInt("SCHEDULER_INPUT_QUEUE_CAPACITY"); ok {
		cfg.Scheduler.InputQueueCapacity = v
	}
}

func envInt(key string) (int, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
