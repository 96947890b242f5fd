package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// InitConfig writes a default configuration file to the default location and
// returns its path. An existing file is only replaced when force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a default configuration file to path.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	content, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

type section struct {
	key     string
	comment string
	value   any
}

// generateYAMLWithComments renders cfg one top-level section at a time so each
// section can carry an explanatory header.
func generateYAMLWithComments(cfg *Config) (string, error) {
	sections := []section{
		{"logging", "Logging: level DEBUG|INFO|WARN|ERROR, format text|json, output stdout|stderr|<file>", cfg.Logging},
		{"storage", "Storage: every collection lives in <root>/<name>", cfg.Storage},
		{"catalog", "Catalog of registered collections: memory or badger (badger.db_path)", cfg.Catalog},
		{"archive", "External utilities used by compress, extract, backup and restore", cfg.Archive},
		{"snapshot", "Remote snapshots: enable to back up to and restore from s3://bucket/key.zip\n" +
			"s3: endpoint, region, bucket, access_key_id, secret_access_key, key_prefix, force_path_style", cfg.Snapshot},
		{"metrics", "Prometheus metrics endpoint", cfg.Metrics},
	}

	var buf bytes.Buffer
	buf.WriteString("# dittodocs configuration file\n")
	buf.WriteString("# Environment variables override these values (e.g. DITTODOCS_STORAGE_ROOT).\n")

	for _, s := range sections {
		data, err := yaml.Marshal(map[string]any{s.key: s.value})
		if err != nil {
			return "", fmt.Errorf("failed to encode %s section: %w", s.key, err)
		}

		buf.WriteString("\n")
		for _, line := range strings.Split(s.comment, "\n") {
			buf.WriteString("# " + line + "\n")
		}
		buf.Write(data)
	}

	return buf.String(), nil
}
