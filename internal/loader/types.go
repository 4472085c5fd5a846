// Package loader - Configuration types
//
// LOCATION: internal/loader/types.go
//
// This file contains all configuration struct definitions.

package loader

import (
	"time"

	"github.com/xtxerr/speedlog/config"
)

// =============================================================================
// Root Configuration
// =============================================================================

// Config is the root configuration structure.
type Config struct {
	OUI       OUIConfig       `yaml:"oui"`
	Database  DatabaseConfig  `yaml:"database"`
	Speedtest SpeedtestConfig `yaml:"speedtest"`
	HostInfo  HostInfoConfig  `yaml:"hostinfo"`
	Export    ExportConfig    `yaml:"export"`
	Shell     ShellConfig     `yaml:"shell"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// =============================================================================
// OUI Registry
// =============================================================================

// OUIConfig configures the registry download.
type OUIConfig struct {
	// URL of the IEEE registry text file.
	URL string `yaml:"url"`

	// Dir holds the downloaded dumps.
	Dir string `yaml:"dir"`

	// Keep is the number of dumps retained. Minimum: 2
	Keep int `yaml:"keep"`

	// Timeout bounds the download.
	// Default: 5m
	Timeout Duration `yaml:"timeout"`
}

// =============================================================================
// Database
// =============================================================================

// DatabaseConfig configures the DuckDB file.
type DatabaseConfig struct {
	// Path to the database file. Empty means in-memory.
	Path string `yaml:"path"`

	// QueryTimeout is the default query timeout.
	// Default: 30s
	QueryTimeout Duration `yaml:"query_timeout"`
}

// =============================================================================
// Speed Test
// =============================================================================

// SpeedtestConfig configures the measurement driver.
type SpeedtestConfig struct {
	// Timeout bounds every HTTP request of a test.
	// Default: 60s
	Timeout Duration `yaml:"timeout"`

	// ProgressCells is the number of progress slots per transfer stage.
	ProgressCells int `yaml:"progress_cells"`

	// ServerIDs restricts the best-server search.
	ServerIDs []int `yaml:"server_ids"`
}

// =============================================================================
// Host Info
// =============================================================================

// HostInfoConfig configures the public address and geo lookups.
type HostInfoConfig struct {
	CheckIPURL string   `yaml:"check_ip_url"`
	IPInfoURL  string   `yaml:"ip_info_url"`
	Timeout    Duration `yaml:"timeout"`
}

// =============================================================================
// Reports
// =============================================================================

// ExportConfig configures Parquet exports.
type ExportConfig struct {
	// Compression: none, snappy, zstd, lz4, gzip
	Compression string `yaml:"compression"`
}

// ShellConfig configures the interactive shell.
type ShellConfig struct {
	SearchLimit int `yaml:"search_limit"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	// Level: debug, info, warn, error
	Level string `yaml:"level"`

	// JSON selects the JSON handler instead of text.
	JSON bool `yaml:"json"`
}

// =============================================================================
// Defaults
// =============================================================================

// DefaultConfig returns a configuration with all defaults applied.
func DefaultConfig() *Config {
	return &Config{
		OUI: OUIConfig{
			URL:     config.DefaultOUIURL,
			Dir:     config.DefaultOUIDir,
			Keep:    config.DefaultOUIKeep,
			Timeout: Duration(config.DefaultOUITimeout),
		},
		Database: DatabaseConfig{
			Path:         config.DefaultDatabasePath,
			QueryTimeout: Duration(config.DefaultQueryTimeout),
		},
		Speedtest: SpeedtestConfig{
			Timeout:       Duration(config.DefaultSpeedtestTimeout),
			ProgressCells: config.DefaultProgressCells,
		},
		HostInfo: HostInfoConfig{
			CheckIPURL: config.DefaultCheckIPURL,
			IPInfoURL:  config.DefaultIPInfoURL,
			Timeout:    Duration(config.DefaultHostInfoTimeout),
		},
		Export: ExportConfig{
			Compression: config.DefaultExportCompression,
		},
		Shell: ShellConfig{
			SearchLimit: config.DefaultSearchLimit,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// Helper Types
// =============================================================================

// Duration is a time.Duration that can be unmarshaled from YAML.
// Supports: "30s", "5m", or plain seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	// Plain integers are seconds.
	var i int
	if err := unmarshal(&i); err == nil {
		*d = Duration(time.Duration(i) * time.Second)
		return nil
	}
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
