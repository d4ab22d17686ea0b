package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppConfigDefaults(t *testing.T) {
	t.Setenv("JUDGE0_API_KEY", "from-env")
	path := writeConfig(t, `
catalog:
  file: questions.yaml
runtimes:
  remote:
    enabled: true
    poll:
      maxAttempts: 4
validation:
  orchestrator:
    vetoThreshold: 0.25
`)
	cfg, err := loadAppConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != defaultHTTPAddr || cfg.Server.MaxCodeBytes != defaultMaxCodeBytes {
		t.Fatalf("server defaults not applied: %+v", cfg.Server)
	}
	remote := cfg.Runtimes.Remote
	if remote.APIKey != "from-env" {
		t.Fatalf("api key should come from the environment, got %q", remote.APIKey)
	}
	if remote.Poll.MaxAttempts != 4 || remote.Poll.BaseDelay != time.Second {
		t.Fatalf("poll policy should merge with defaults: %+v", remote.Poll)
	}
	if remote.LanguageIDs["java"] != 62 {
		t.Fatalf("default language ids missing: %v", remote.LanguageIDs)
	}
	if cfg.Kafka.VerdictTopic != "validator.verdict" {
		t.Fatalf("unexpected verdict topic %q", cfg.Kafka.VerdictTopic)
	}
	if cfg.Validation.Orchestrator.VetoThreshold != 0.25 {
		t.Fatalf("veto threshold not read: %v", cfg.Validation.Orchestrator.VetoThreshold)
	}
}

func TestLoadAppConfigErrors(t *testing.T) {
	cases := map[string]string{
		"no catalog":      "server:\n  addr: :9000\n",
		"database no dsn": "catalog:\n  file: q.json\nruntimes:\n  database:\n    enabled: true\n",
	}
	for name, body := range cases {
		t.Setenv("VALIDATOR_SQL_DSN", "")
		if _, err := loadAppConfig(writeConfig(t, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := loadAppConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
