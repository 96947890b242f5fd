package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Default Strategy:
//   - Zero values (0, "", nil) are replaced with defaults
//   - Explicit values are preserved
//   - Implementation-specific defaults are handled by the implementations
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyStorageDefaults(&cfg.Storage)
	applyCatalogDefaults(&cfg.Catalog, cfg.Storage.Root)
	applyArchiveDefaults(&cfg.Archive)
	applySnapshotDefaults(&cfg.Snapshot)
	applyMetricsDefaults(&cfg.Metrics)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyStorageDefaults(cfg *StorageConfig) {
	if cfg.Root == "" {
		cfg.Root = defaultStorageRoot()
	}
}

// defaultStorageRoot is $XDG_DATA_HOME/dittodocs, ~/.local/share/dittodocs, or
// ./dittodocs-data when no home directory is known.
func defaultStorageRoot() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "dittodocs")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "dittodocs-data"
	}
	return filepath.Join(home, ".local", "share", "dittodocs")
}

// applyCatalogDefaults places the badger database next to the collections
// unless a path is configured.
func applyCatalogDefaults(cfg *CatalogConfig, storageRoot string) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
	if _, ok := cfg.Badger["db_path"]; !ok && cfg.Type == "badger" {
		cfg.Badger["db_path"] = filepath.Join(storageRoot, ".catalog")
	}
}

func applyArchiveDefaults(cfg *ArchiveConfig) {
	if cfg.ZipCommand == "" {
		cfg.ZipCommand = "zip"
	}
	if cfg.UnzipCommand == "" {
		cfg.UnzipCommand = "unzip"
	}
	if cfg.CopyCommand == "" {
		cfg.CopyCommand = "cp"
	}
}

func applySnapshotDefaults(cfg *SnapshotConfig) {
	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// GetDefaultConfig returns a Config with all default values applied.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
