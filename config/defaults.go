// Package config provides configuration defaults for speedlog.
//
// This package defines all configurable constants with documented defaults.
// Users can override these values via config.yaml or command line flags.
package config

import "time"

// =============================================================================
// OUI Registry Defaults
// =============================================================================

const (
	// DefaultOUIURL is the IEEE MA-L registry in text form.
	// Override via config: oui.url
	DefaultOUIURL = "http://standards-oui.ieee.org/oui/oui.txt"

	// DefaultOUIDir is where registry dumps are kept.
	// Override via config: oui.dir
	DefaultOUIDir = "oui"

	// DefaultOUIKeep is the number of dumps retained after an update.
	// At least two are kept so the next update has something to compare with.
	// Override via config: oui.keep
	DefaultOUIKeep = 5

	// DefaultOUITimeout bounds the registry download.
	// The registry is several megabytes and the IEEE server is slow.
	// Override via config: oui.timeout
	DefaultOUITimeout = 5 * time.Minute
)

// =============================================================================
// Database Defaults
// =============================================================================

const (
	// DefaultDatabasePath is the DuckDB file holding vendors and sessions.
	// Override via config: database.path
	DefaultDatabasePath = "speedlog.db"

	// DefaultQueryTimeout is the default query timeout.
	// Override via config: database.query_timeout
	DefaultQueryTimeout = 30 * time.Second
)

// =============================================================================
// Speed Test Defaults
// =============================================================================

const (
	// DefaultSpeedtestTimeout bounds each HTTP request of a speed test.
	// Override via config: speedtest.timeout
	DefaultSpeedtestTimeout = 60 * time.Second

	// DefaultProgressCells is the number of progress slots per transfer stage.
	// The progress line is narrowed further on small terminals.
	// Override via config: speedtest.progress_cells
	DefaultProgressCells = 40
)

// =============================================================================
// Host Info Defaults
// =============================================================================

const (
	// DefaultCheckIPURL returns a page containing the public IPv4 address.
	// Override via config: hostinfo.check_ip_url
	DefaultCheckIPURL = "http://checkip.dyndns.com/"

	// DefaultIPInfoURL is the geolocation endpoint; %s is the public address.
	// Override via config: hostinfo.ip_info_url
	DefaultIPInfoURL = "http://ipinfo.io/%s/json"

	// DefaultHostInfoTimeout bounds each host info request.
	// Override via config: hostinfo.timeout
	DefaultHostInfoTimeout = 15 * time.Second
)

// =============================================================================
// Report Defaults
// =============================================================================

const (
	// DefaultExportCompression is the Parquet codec used by export.
	// Override via config: export.compression
	DefaultExportCompression = "zstd"

	// DefaultSearchLimit caps vendor name searches in the shell.
	// Override via config: shell.search_limit
	DefaultSearchLimit = 20
)
