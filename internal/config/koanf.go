// BoardPulse - Project Analytics and Sprint Lifecycle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/boardpulse

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in priority order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/boardpulse/config.yaml",
	"/etc/boardpulse/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all defaults applied. These are layered
// first, then overridden by the config file and environment variables.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8094,
			Timeout:         30 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Database: DatabaseConfig{
			Path:      "/data/boardpulse.duckdb",
			MaxMemory: "2GB",
			Threads:   0, // 0 = runtime.NumCPU()
		},
		PermCache: PermCacheConfig{
			Dir: "/data/permcache",
			// TTLs mirror the 5-10 minute window of the legacy cache.
			RoleTTL:        5 * time.Minute,
			PermissionsTTL: 10 * time.Minute,
			OwnerTTL:       10 * time.Minute,
		},
		RoleService: RoleServiceConfig{
			URL:     "",
			Timeout: 10 * time.Second,
		},
		IssueService: IssueServiceConfig{
			URL:               "",
			Timeout:           15 * time.Second,
			RequestsPerSecond: 20,
		},
		Scheduler: SchedulerConfig{
			Enabled:  true,
			Interval: time.Minute,
		},
		NATS: NATSConfig{
			Enabled:         false,
			URL:             "nats://127.0.0.1:4222",
			EmbeddedServer:  false,
			StoreDir:        "/data/nats/jetstream",
			StreamName:      "ACTIVITY",
			Topic:           "activity.logged",
			DurableName:     "activity-appender",
			QueueGroup:      "appenders",
			RetentionDays:   7,
			MaxReconnects:   60,
			ReconnectWait:   2 * time.Second,
			ReconnectBuffer: 8 * 1024 * 1024,
		},
		API: APIConfig{
			DefaultPageSize: 50,
			MaxPageSize:     500,
			TrendCacheTTL:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// envPrefixes maps environment variable prefixes to koanf path prefixes.
// ROLE_SERVICE_URL -> role_service.url, PERMCACHE_ROLE_TTL -> permcache.role_ttl.
var envPrefixes = []struct {
	env  string
	path string
}{
	{"ROLE_SERVICE_", "role_service."},
	{"ISSUE_SERVICE_", "issue_service."},
	{"PERMCACHE_", "permcache."},
	{"SCHEDULER_", "scheduler."},
	{"DATABASE_", "database."},
	{"LOGGING_", "logging."},
	{"SERVER_", "server."},
	{"NATS_", "nats."},
	{"API_", "api."},
}

// envTransformFunc converts an environment variable name to a koanf path.
// Variables outside the known prefixes are ignored.
//
// Examples:
//   - ROLE_SERVICE_URL -> role_service.url
//   - PERMCACHE_ROLE_TTL -> permcache.role_ttl
//   - SERVER_PORT -> server.port
func envTransformFunc(key string) string {
	for _, p := range envPrefixes {
		if strings.HasPrefix(key, p.env) {
			return p.path + strings.ToLower(strings.TrimPrefix(key, p.env))
		}
	}
	return ""
}

// Load builds the configuration from layered sources (highest priority wins):
// environment variables, then an optional YAML file, then built-in defaults.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file that exists, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
