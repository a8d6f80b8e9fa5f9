package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
service:
  name: test-mortar
state:
  path: /tmp/test-mortar.db
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Service.Name != "test-mortar" {
		t.Fatalf("unexpected name %q", cfg.Service.Name)
	}
	if cfg.Service.LogLevel != "INFO" {
		t.Fatalf("expected default log level, got %q", cfg.Service.LogLevel)
	}
	if cfg.History.Limit != 50 {
		t.Fatalf("expected default history limit, got %d", cfg.History.Limit)
	}
	if cfg.Fingerprint == "" {
		t.Fatalf("expected a config fingerprint")
	}
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("MORTAR_TEST_KEY", "sekrit")
	path := writeConfig(t, `
state:
  path: /tmp/test-mortar.db
api:
  enabled: true
  listen: "127.0.0.1:9999"
  api_key: ${MORTAR_TEST_KEY}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.APIKey != "sekrit" {
		t.Fatalf("expected env expansion, got %q", cfg.API.APIKey)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	path := writeConfig(t, "service: [not a map")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
