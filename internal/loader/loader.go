// Package loader handles configuration file loading and validation.
//
// LOCATION: internal/loader/loader.go
//
// This package is responsible for:
//   - Loading YAML configuration files
//   - Expanding environment variables
//   - Converting the file layout into the runtime configs of each package

package loader

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/xtxerr/speedlog/internal/errors"
	"github.com/xtxerr/speedlog/internal/measure"
	"github.com/xtxerr/speedlog/internal/storage/parquet"
	"github.com/xtxerr/speedlog/internal/store"
)

// =============================================================================
// Load
// =============================================================================

// Load loads configuration from a YAML file. An empty path returns the
// defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of the defaults.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// Validate
// =============================================================================

var validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

var validCompressions = map[string]bool{"": true, "none": true, "snappy": true, "zstd": true, "lz4": true, "gzip": true}

// Validate validates the configuration.
func Validate(cfg *Config) error {
	errs := errors.NewValidationErrors()

	// OUI validation
	if cfg.OUI.URL == "" {
		errs.AddMissing("oui.url")
	}
	if cfg.OUI.Dir == "" {
		errs.AddMissing("oui.dir")
	}
	if cfg.OUI.Keep < 2 {
		errs.AddField("oui.keep", "must be at least 2")
	}

	// Speed test validation
	if cfg.Speedtest.Timeout.Duration() <= 0 {
		errs.AddField("speedtest.timeout", "must be positive")
	}
	if cfg.Speedtest.ProgressCells <= 0 {
		errs.AddField("speedtest.progress_cells", "must be positive")
	}
	for i, id := range cfg.Speedtest.ServerIDs {
		if id <= 0 {
			errs.AddField(fmt.Sprintf("speedtest.server_ids[%d]", i), "must be positive")
		}
	}

	// Host info validation
	if cfg.HostInfo.CheckIPURL == "" {
		errs.AddMissing("hostinfo.check_ip_url")
	}
	if strings.Count(cfg.HostInfo.IPInfoURL, "%s") != 1 {
		errs.AddField("hostinfo.ip_info_url", "must contain exactly one %s")
	}

	if !validCompressions[cfg.Export.Compression] {
		errs.AddField("export.compression", fmt.Sprintf("unknown codec %q", cfg.Export.Compression))
	}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs.AddField("logging.level", fmt.Sprintf("unknown level %q", cfg.Logging.Level))
	}

	return errs.Err()
}

// =============================================================================
// Conversion: Config → runtime configs
// =============================================================================

// ToStoreConfig converts the database section to the store config.
func ToStoreConfig(cfg *DatabaseConfig) store.Config {
	sc := store.DefaultConfig()
	sc.DSN = cfg.Path
	if cfg.QueryTimeout > 0 {
		sc.QueryTimeout = cfg.QueryTimeout.Duration()
	}
	return sc
}

// ToDriverConfig converts the speed test section to the driver config.
func ToDriverConfig(cfg *SpeedtestConfig) measure.DriverConfig {
	return measure.DriverConfig{
		Timeout:       cfg.Timeout.Duration(),
		ProgressCells: cfg.ProgressCells,
		ServerIDs:     append([]int(nil), cfg.ServerIDs...),
	}
}

// ToParquetOptions converts the export section to writer options.
func ToParquetOptions(cfg *ExportConfig) parquet.Options {
	opts := parquet.DefaultOptions()
	opts.Compression = parquet.ParseCompressionType(cfg.Compression)
	return opts
}
