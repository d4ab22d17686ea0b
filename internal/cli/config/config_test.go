package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.BaseURL != DefaultBaseURL || cfg.Timeout != DefaultTimeout || cfg.HistoryFile != DefaultHistoryFile {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.PrettyJSON == nil || !*cfg.PrettyJSON {
		t.Fatalf("pretty json should default to true")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "cli.yaml")
	content := "baseURL: http://validator:9000\ntimeout: 5s\nprettyJSON: false\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config failed: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.BaseURL != "http://validator:9000" || cfg.Timeout != 5*time.Second {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.PrettyJSON == nil || *cfg.PrettyJSON {
		t.Fatalf("pretty json override lost")
	}
	if cfg.TokenStatePath != DefaultTokenStatePath {
		t.Fatalf("token state path default not applied")
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "cli.yaml")
	if err := os.WriteFile(path, []byte("timeout: [oops"), 0o600); err != nil {
		t.Fatalf("write config failed: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
