package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete dittodocs configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (DITTODOCS_*)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
//
// Type-specific Pattern:
// Sections that select an implementation (catalog, snapshot) carry one
// map[string]any per implementation. Only the map matching the selected type is
// decoded, by the factory that builds it.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Storage locates the collections on disk
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`

	// Catalog selects where registered collections are recorded
	Catalog CatalogConfig `mapstructure:"catalog" yaml:"catalog"`

	// Archive names the external utilities used by compress, extract, backup and restore
	Archive ArchiveConfig `mapstructure:"archive" yaml:"archive"`

	// Snapshot configures remote backup/restore targets
	Snapshot SnapshotConfig `mapstructure:"snapshot" yaml:"snapshot"`

	// Metrics controls the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// StorageConfig locates collection roots.
type StorageConfig struct {
	// Root is the directory holding one subdirectory per collection
	Root string `mapstructure:"root" yaml:"root" validate:"required"`

	// SniffMime detects the mime type from content when the file extension
	// has no registered type
	SniffMime bool `mapstructure:"sniff_mime" yaml:"sniff_mime"`
}

// CatalogConfig selects the catalog implementation.
type CatalogConfig struct {
	// Type specifies which catalog implementation to use
	// Valid values: memory, badger
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=memory badger"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger" yaml:"badger,omitempty"`
}

// ArchiveConfig names the archive utilities.
type ArchiveConfig struct {
	ZipCommand   string `mapstructure:"zip_command" yaml:"zip_command" validate:"required"`
	UnzipCommand string `mapstructure:"unzip_command" yaml:"unzip_command" validate:"required"`
	CopyCommand  string `mapstructure:"copy_command" yaml:"copy_command" validate:"required"`
}

// SnapshotConfig configures remote snapshot targets.
type SnapshotConfig struct {
	// Enabled turns on s3:// backup and restore locations
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// S3 contains S3-specific configuration (see snapshot/s3.Config)
	S3 map[string]any `mapstructure:"s3" yaml:"s3,omitempty"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port for the HTTP server exposing /metrics
	Port int `mapstructure:"port" yaml:"port" validate:"omitempty,min=1,max=65535"`
}

// Load reads configPath (or the default location when empty), overlays
// DITTODOCS_* environment variables, applies defaults and validates the result.
// A missing file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// envKeys are bound explicitly so that environment variables apply even
// when no configuration file defines the key.
var envKeys = []string{
	"logging.level",
	"logging.format",
	"logging.output",
	"storage.root",
	"storage.sniff_mime",
	"catalog.type",
	"archive.zip_command",
	"archive.unzip_command",
	"archive.copy_command",
	"snapshot.enabled",
	"metrics.enabled",
	"metrics.port",
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use DITTODOCS_ prefix and underscores
	// Example: DITTODOCS_STORAGE_ROOT=/srv/docs
	v.SetEnvPrefix("DITTODOCS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/dittodocs/config.{yaml,toml}
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "dittodocs")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "dittodocs")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
