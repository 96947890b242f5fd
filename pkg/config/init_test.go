package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestInitConfig_Success(t *testing.T) {
	isolateConfigDir(t)

	configPath, err := InitConfig(false)
	if err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Failed to read config file: %v", err)
	}

	contentStr := string(content)
	for _, section := range []string{
		"# dittodocs configuration file",
		"logging:",
		"storage:",
		"catalog:",
		"archive:",
		"snapshot:",
		"metrics:",
	} {
		if !strings.Contains(contentStr, section) {
			t.Errorf("Config file missing section: %s", section)
		}
	}

	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		t.Fatalf("Generated config is not valid YAML: %v", err)
	}
	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected INFO in generated YAML, got %q", cfg.Logging.Level)
	}
}

func TestInitConfig_AlreadyExists(t *testing.T) {
	isolateConfigDir(t)

	if _, err := InitConfig(false); err != nil {
		t.Fatalf("First InitConfig failed: %v", err)
	}

	_, err := InitConfig(false)
	if err == nil {
		t.Fatal("Expected error when config already exists")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("Expected 'already exists' error, got: %v", err)
	}
}

func TestInitConfigToPath_ForceOverwrite(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.yaml")

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(configPath, []byte("existing"), 0644); err != nil {
		t.Fatalf("Failed to create existing file: %v", err)
	}

	if err := InitConfigToPath(configPath, true); err != nil {
		t.Fatalf("Force InitConfigToPath failed: %v", err)
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Failed to read config: %v", err)
	}
	if string(content) == "existing" {
		t.Error("File was not overwritten")
	}
}

func TestGeneratedConfigIsLoadable(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := InitConfigToPath(configPath, false); err != nil {
		t.Fatalf("Failed to generate config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load generated config: %v", err)
	}

	want := GetDefaultConfig()
	if cfg.Storage.Root != want.Storage.Root {
		t.Errorf("Expected root %q, got %q", want.Storage.Root, cfg.Storage.Root)
	}
	if cfg.Metrics.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Metrics.Port)
	}
	if cfg.Archive.ZipCommand != "zip" {
		t.Errorf("Expected zip command, got %q", cfg.Archive.ZipCommand)
	}
}
