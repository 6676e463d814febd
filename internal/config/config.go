// BoardPulse - Project Analytics and Sprint Lifecycle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/boardpulse

// Package config provides layered configuration for BoardPulse.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in sensible defaults for all optional settings
//  2. Config File: optional YAML config file (config.yaml) for persistent settings
//  3. Environment Variables: override any setting
//
// Config is immutable after Load() and safe for concurrent reads.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig       `koanf:"server"`
	Database     DatabaseConfig     `koanf:"database"`
	PermCache    PermCacheConfig    `koanf:"permcache"`
	RoleService  RoleServiceConfig  `koanf:"role_service"`
	IssueService IssueServiceConfig `koanf:"issue_service"`
	Scheduler    SchedulerConfig    `koanf:"scheduler"`
	NATS         NATSConfig         `koanf:"nats"`
	API          APIConfig          `koanf:"api"`
	Logging      LoggingConfig      `koanf:"logging"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`

	// CORSOrigins lists allowed CORS origins. "*" allows all.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitReqs is the per-IP request budget per RateLimitWindow.
	// 0 disables rate limiting.
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// DatabaseConfig configures the DuckDB store holding sprints, the activity
// log, and dashboard snapshots.
type DatabaseConfig struct {
	// Path is the database file path. ":memory:" and temp paths are used in tests.
	Path string `koanf:"path"`

	// MaxMemory is the DuckDB memory limit (e.g. "2GB").
	MaxMemory string `koanf:"max_memory"`

	// Threads is the DuckDB thread count. 0 = runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// PermCacheConfig configures the BadgerDB-backed permission cache.
// The three key families carry independent TTLs because they expire
// independently in the legacy cache they mirror.
type PermCacheConfig struct {
	// Dir is the Badger data directory. Empty means in-memory (tests).
	Dir string `koanf:"dir"`

	// RoleTTL applies to (user, project) -> roleID entries.
	RoleTTL time.Duration `koanf:"role_ttl"`

	// PermissionsTTL applies to role -> permission set entries.
	PermissionsTTL time.Duration `koanf:"permissions_ttl"`

	// OwnerTTL applies to role -> isOwner flag entries.
	OwnerTTL time.Duration `koanf:"owner_ttl"`
}

// RoleServiceConfig configures the authoritative role service client.
type RoleServiceConfig struct {
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
}

// IssueServiceConfig configures the external issue service client.
type IssueServiceConfig struct {
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`

	// RequestsPerSecond caps outbound request rate. 0 disables the limiter.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
}

// SchedulerConfig configures the sprint expiration scheduler.
type SchedulerConfig struct {
	Enabled bool `koanf:"enabled"`

	// Interval is the sweep tick period.
	Interval time.Duration `koanf:"interval"`
}

// NATSConfig configures activity event ingestion over NATS JetStream.
type NATSConfig struct {
	Enabled bool `koanf:"enabled"`

	URL string `koanf:"url"`

	// EmbeddedServer runs an in-process NATS server for single-binary deploys.
	EmbeddedServer bool   `koanf:"embedded_server"`
	StoreDir       string `koanf:"store_dir"`

	StreamName    string `koanf:"stream_name"`
	Topic         string `koanf:"topic"`
	DurableName   string `koanf:"durable_name"`
	QueueGroup    string `koanf:"queue_group"`
	RetentionDays int    `koanf:"retention_days"`

	MaxReconnects   int           `koanf:"max_reconnects"`
	ReconnectWait   time.Duration `koanf:"reconnect_wait"`
	ReconnectBuffer int           `koanf:"reconnect_buffer"`
}

// APIConfig holds API behavior settings.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`

	// TrendCacheTTL is how long metric trend responses are cached in-process.
	TrendCacheTTL time.Duration `koanf:"trend_cache_ttl"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks required fields and value ranges. Called by Load after
// unmarshaling; a Config that fails validation is never returned to callers.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1-65535, got %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.RoleService.URL == "" {
		return fmt.Errorf("role_service.url is required")
	}
	if err := validateURL("role_service.url", c.RoleService.URL); err != nil {
		return err
	}
	if c.IssueService.URL == "" {
		return fmt.Errorf("issue_service.url is required")
	}
	if err := validateURL("issue_service.url", c.IssueService.URL); err != nil {
		return err
	}
	if c.Scheduler.Enabled && c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be positive, got %s", c.Scheduler.Interval)
	}
	if c.PermCache.RoleTTL <= 0 || c.PermCache.PermissionsTTL <= 0 || c.PermCache.OwnerTTL <= 0 {
		return fmt.Errorf("permcache TTLs must be positive")
	}
	if c.NATS.Enabled {
		if c.NATS.URL == "" && !c.NATS.EmbeddedServer {
			return fmt.Errorf("nats.url is required when nats is enabled without an embedded server")
		}
		if c.NATS.StreamName == "" || c.NATS.Topic == "" {
			return fmt.Errorf("nats.stream_name and nats.topic are required when nats is enabled")
		}
	}
	if c.API.DefaultPageSize <= 0 || c.API.MaxPageSize < c.API.DefaultPageSize {
		return fmt.Errorf("api page sizes misconfigured: default=%d max=%d",
			c.API.DefaultPageSize, c.API.MaxPageSize)
	}
	return nil
}

func validateURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", field, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s is missing a host", field)
	}
	return nil
}

// Addr returns the host:port the HTTP server binds to.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
