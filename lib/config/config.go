// Copyright 2026 The Floorsense Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for Floorsense
// components.
//
// Configuration is loaded from a single YAML file specified by:
//   - FLOORSENSE_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures
// deterministic, auditable configuration with no hidden overrides.
// The production zone registry is a separate JSONC file referenced
// from the config; see zones.go.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/floorsense/floorsense/collector"
	"github.com/floorsense/floorsense/lib/schema/fleet"
)

// Config is the master configuration for a Floorsense collector
// deployment.
type Config struct {
	// Ingest configures the snapshot ingestion listener.
	Ingest IngestConfig `yaml:"ingest"`

	// Log configures logging output.
	Log LogConfig `yaml:"log"`

	// ZoneRegistry is the path to the JSONC zone registry file.
	// Empty means no pre-registered zones; zones are then discovered
	// from device snapshots alone.
	ZoneRegistry string `yaml:"zone_registry"`

	// Policy holds the classification and retention tuning.
	Policy PolicyConfig `yaml:"policy"`
}

// IngestConfig configures the snapshot listener.
type IngestConfig struct {
	// SocketPath is the Unix socket the collector listens on.
	// Default: /run/floorsense/collector.sock
	SocketPath string `yaml:"socket_path"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is the minimum level emitted: debug, info, warn, error.
	// Default: info
	Level string `yaml:"level"`
}

// PolicyConfig is the YAML shape of the engine policy. Durations are
// Go duration strings ("5s", "300s", "5m"). Zero values fall back to
// the engine defaults, so a config file only needs to name the knobs
// it changes.
type PolicyConfig struct {
	// Bands are the numeric classification thresholds.
	Bands BandsConfig `yaml:"bands"`

	// RateWindow is the base suppression window for HIGH events
	// (MEDIUM doubles it, LOW quadruples it). Default: 5s
	RateWindow string `yaml:"rate_window"`

	// DedupeWindow is the fallback suppression window and bounds the
	// dedupe cache lifetime. Default: 30s
	DedupeWindow string `yaml:"dedupe_window"`

	// BucketWidth coarsens numeric values for dedupe keying.
	// Default: 10
	BucketWidth float64 `yaml:"bucket_width"`

	// HistoryLength is the per-device rolling sample window.
	// Default: 10
	HistoryLength int `yaml:"history_length"`

	// TrendWindow is how many recent samples feed the trend slope.
	// Default: 4
	TrendWindow int `yaml:"trend_window"`

	// TrendSlope is the mean per-sample delta beyond which a
	// trajectory counts as improving or degrading. Default: 2
	TrendSlope float64 `yaml:"trend_slope"`

	// Retention caps the tiered event store.
	Retention RetentionConfig `yaml:"retention"`

	// ContextMaxEvents is the default digest event count.
	// Default: 50
	ContextMaxEvents int `yaml:"context_max_events"`

	// SummaryWindow is the default trailing window for summaries.
	// Default: 300s
	SummaryWindow string `yaml:"summary_window"`

	// ChargeThreshold is the minimum absolute charge-level delta that
	// produces a transporter event. Default: 10
	ChargeThreshold float64 `yaml:"charge_threshold"`
}

// BandsConfig holds the numeric classification bands.
type BandsConfig struct {
	Critical float64 `yaml:"critical"`
	Warning  float64 `yaml:"warning"`
	Caution  float64 `yaml:"caution"`
	Comfort  float64 `yaml:"comfort"`
}

// RetentionConfig holds the tiered retention caps.
type RetentionConfig struct {
	Critical int `yaml:"critical"`
	High     int `yaml:"high"`
	Medium   int `yaml:"medium"`
	Low      int `yaml:"low"`
	Global   int `yaml:"global"`
}

// Default returns the default configuration. These defaults are a
// base before loading the config file; they exist so every field has
// a sensible zero-value, not as a substitute for the file.
func Default() *Config {
	return &Config{
		Ingest: IngestConfig{
			SocketPath: "/run/floorsense/collector.sock",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the FLOORSENSE_CONFIG environment
// variable. There are no fallbacks: if the variable is not set, this
// fails.
func Load() (*Config, error) {
	path := os.Getenv("FLOORSENSE_CONFIG")
	if path == "" {
		return nil, fmt.Errorf("FLOORSENSE_CONFIG environment variable not set; " +
			"set it to the path of your floorsense.yaml config file, or use --config flag")
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path. The config
// file is the single source of truth; environment variables do not
// override its values.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.Ingest.SocketPath == "" {
		errs = append(errs, fmt.Errorf("ingest.socket_path is required"))
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be one of: debug, info, warn, error"))
	}

	for _, field := range []struct {
		name  string
		value string
	}{
		{"policy.rate_window", c.Policy.RateWindow},
		{"policy.dedupe_window", c.Policy.DedupeWindow},
		{"policy.summary_window", c.Policy.SummaryWindow},
	} {
		if field.value == "" {
			continue
		}
		if _, err := time.ParseDuration(field.value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field.name, err))
		}
	}

	if c.Policy.BucketWidth < 0 {
		errs = append(errs, fmt.Errorf("policy.bucket_width must not be negative"))
	}
	bands := c.Policy.Bands
	if bands.Critical > bands.Warning || bands.Warning > bands.Caution {
		errs = append(errs, fmt.Errorf("policy.bands must be ordered critical <= warning <= caution"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// CollectorPolicy converts the YAML policy into the engine policy,
// starting from the engine defaults and overriding only the fields
// the file set.
func (c *Config) CollectorPolicy() collector.Policy {
	policy := collector.DefaultPolicy()
	pc := c.Policy

	if pc.Bands != (BandsConfig{}) {
		policy.Bands = collector.Bands{
			Critical: pc.Bands.Critical,
			Warning:  pc.Bands.Warning,
			Caution:  pc.Bands.Caution,
			Comfort:  pc.Bands.Comfort,
		}
	}
	if pc.RateWindow != "" {
		policy.Windows.Rate, _ = time.ParseDuration(pc.RateWindow)
	}
	if pc.DedupeWindow != "" {
		policy.Windows.Dedupe, _ = time.ParseDuration(pc.DedupeWindow)
	}
	if pc.BucketWidth > 0 {
		policy.BucketWidth = pc.BucketWidth
	}
	if pc.HistoryLength > 0 {
		policy.HistoryLength = pc.HistoryLength
	}
	if pc.TrendWindow > 0 {
		policy.TrendWindow = pc.TrendWindow
	}
	if pc.TrendSlope > 0 {
		policy.TrendSlope = pc.TrendSlope
	}
	if pc.Retention != (RetentionConfig{}) {
		policy.Retention = collector.RetentionCaps{
			Critical: pc.Retention.Critical,
			High:     pc.Retention.High,
			Medium:   pc.Retention.Medium,
			Low:      pc.Retention.Low,
			Global:   pc.Retention.Global,
		}
	}
	if pc.ContextMaxEvents > 0 {
		policy.ContextMaxEvents = pc.ContextMaxEvents
	}
	if pc.SummaryWindow != "" {
		policy.SummaryWindow, _ = time.ParseDuration(pc.SummaryWindow)
	}
	if pc.ChargeThreshold > 0 {
		table := policy.Categories[fleet.CategoryTransporter]
		table.NumericThresholds = map[string]float64{fleet.AttrCharge: pc.ChargeThreshold}
		policy.Categories[fleet.CategoryTransporter] = table
	}

	return policy
}

// LogLevel converts the configured level name to its slog level.
// Validation guarantees the name is one of the known four.
func (c *Config) LogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
