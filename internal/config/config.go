// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package config provides the bootstrap configuration every binary in the
// fabric loads before it can even talk to the bus — the handful of values
// needed to dial NATS and find the settings service in the first place.
//
// This is deliberately NOT the dynamic Settings Document (internal/settingsstore):
// that is a bus-addressed, hot-reloadable tree served by the settings
// service at runtime. This package is the static, process-local bootstrap
// layer — the NATS URL to try first, where the Supervisor finds its unit
// descriptors, timeouts — loaded once at process start the way the teacher
// loads its own Config: defaults, then an optional YAML file, then
// environment variables, in that precedence order.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in priority order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/cartographus/config.yaml",
	"/etc/cartographus/config.yml",
}

// ConfigPathEnvVar overrides the config file search with an explicit path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Config is the bootstrap configuration shared by every binary.
type Config struct {
	// NATSURL is the default bus URL the Supervisor dials directly (it
	// cannot GetSettings from a settings service it has not started yet)
	// and the fallback every other service uses if
	// settings.global.nats_url is absent from the document.
	NATSURL string `koanf:"nats_url"`

	// Supervisor holds Supervisor-only bootstrap settings.
	Supervisor SupervisorConfig `koanf:"supervisor"`

	// Settings holds the settings service's bootstrap settings.
	Settings SettingsConfig `koanf:"settings"`

	// Runtime holds Service Runtime bootstrap settings shared by every worker.
	Runtime RuntimeConfig `koanf:"runtime"`

	// Logging holds the default logger configuration for the process.
	Logging LoggingConfig `koanf:"logging"`

	// Ops holds the optional ops HTTP surface configuration.
	Ops OpsConfig `koanf:"ops"`
}

// SupervisorConfig configures the Supervisor's own bootstrap.
type SupervisorConfig struct {
	// UnitDir is the directory scanned at startup for unit descriptors.
	UnitDir string `koanf:"unit_dir"`

	// MaxRetries is the restart cap before a crashed service is quarantined
	// into the error state.
	MaxRetries int `koanf:"max_retries"`

	// GracefulTimeout is how long stop_service waits after a soft
	// termination signal before forcefully killing the child.
	GracefulTimeout time.Duration `koanf:"graceful_timeout"`

	// SettingsWarmupDelay is how long start_all waits after launching the
	// settings service before starting the rest of the fleet.
	SettingsWarmupDelay time.Duration `koanf:"settings_warmup_delay"`

	// MonitorInterval is the Supervisor's liveness-poll period.
	MonitorInterval time.Duration `koanf:"monitor_interval"`

	// SettingsServiceName is the unit name treated as the settings service
	// for start_all ordering.
	SettingsServiceName string `koanf:"settings_service_name"`
}

// SettingsConfig configures the settings service's bootstrap.
type SettingsConfig struct {
	// Dir is the directory holding the settings document and its backups.
	Dir string `koanf:"dir"`

	// File is the settings document's filename within Dir.
	File string `koanf:"file"`
}

// RuntimeConfig configures the Service Runtime's startup protocol.
type RuntimeConfig struct {
	// GetSettingsTimeout is the per-request timeout for settings.get.all.
	GetSettingsTimeout time.Duration `koanf:"get_settings_timeout"`

	// RetryInterval is how long to wait between GetSettings retries.
	RetryInterval time.Duration `koanf:"retry_interval"`

	// RequestTimeout is the default per-call bus Request timeout.
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// LoggingConfig configures the default logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// OpsConfig configures the optional ops HTTP surface (spec §6A).
type OpsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

// Default returns sensible defaults, applied before any config file or
// environment variable overrides.
func Default() *Config {
	return &Config{
		NATSURL: "nats://localhost:4222",
		Supervisor: SupervisorConfig{
			UnitDir:             "/etc/cartographus/units",
			MaxRetries:          3,
			GracefulTimeout:     5 * time.Second,
			SettingsWarmupDelay: 2 * time.Second,
			MonitorInterval:     2 * time.Second,
			SettingsServiceName: "settings_service",
		},
		Settings: SettingsConfig{
			Dir:  "/var/lib/cartographus/settings",
			File: "settings.json",
		},
		Runtime: RuntimeConfig{
			GetSettingsTimeout: 5 * time.Second,
			RetryInterval:      2 * time.Second,
			RequestTimeout:     5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Ops: OpsConfig{
			Enabled: false,
			Addr:    ":9090",
		},
	}
}

// Load builds configuration by layering defaults, an optional YAML file,
// then environment variables (highest precedence), matching the teacher's
// own three-layer koanf loading order.
func Load() (*Config, error) {
	k := koanf.New(".")

	cfg := Default()

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("CARTOGRAPHUS_", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envTransform turns CARTOGRAPHUS_SUPERVISOR_MAX_RETRIES into
// supervisor.max_retries, mirroring the teacher's own env-var-to-koanf-path
// transform.
func envTransform(s string) string {
	return koanfPath(s)
}

// Validate rejects configuration that would make every downstream
// component's job impossible.
func (c *Config) Validate() error {
	if c.NATSURL == "" {
		return fmt.Errorf("nats_url must not be empty")
	}
	if c.Supervisor.MaxRetries < 0 {
		return fmt.Errorf("supervisor.max_retries must be >= 0")
	}
	if c.Supervisor.GracefulTimeout <= 0 {
		return fmt.Errorf("supervisor.graceful_timeout must be positive")
	}
	return nil
}
