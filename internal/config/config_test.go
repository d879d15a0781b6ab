package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workbook.Sheet != "State_Consolidated_TimeSeries" {
		t.Errorf("workbook sheet = %q", cfg.Workbook.Sheet)
	}
	if cfg.Cache.TTLSec != 300 {
		t.Errorf("cache ttl = %d, want 300", cfg.Cache.TTLSec)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("api port = %d, want 8080", cfg.API.Port)
	}
	if cfg.Recorder.Driver != "none" {
		t.Errorf("recorder driver = %q, want none", cfg.Recorder.Driver)
	}
	if cfg.Refresh.Enabled {
		t.Error("refresh should be disabled by default")
	}
}

func TestLoadFromFile(t *testing.T) {
	yaml := `
workbook:
  path: /srv/dca/prices.xlsx
  allow_gaps: true
rainfall:
  timeout_sec: 5
api:
  port: 9090
recorder:
  driver: sqlite
  path: /tmp/snap.db
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Workbook.Path != "/srv/dca/prices.xlsx" {
		t.Errorf("workbook path = %q", cfg.Workbook.Path)
	}
	if !cfg.Workbook.AllowGaps {
		t.Error("allow_gaps not honored")
	}
	if cfg.Rainfall.TimeoutSec != 5 {
		t.Errorf("rainfall timeout = %d, want 5", cfg.Rainfall.TimeoutSec)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("api port = %d, want 9090", cfg.API.Port)
	}
	if cfg.Recorder.Driver != "sqlite" {
		t.Errorf("recorder driver = %q, want sqlite", cfg.Recorder.Driver)
	}
	// Untouched sections keep defaults.
	if cfg.Cache.TTLSec != 300 {
		t.Errorf("cache ttl = %d, want default 300", cfg.Cache.TTLSec)
	}
}

func TestLoadFromMissingFile(t *testing.T) {
	if _, err := LoadFromFile("/does/not/exist.yaml"); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("DCADASH_CACHE_TTL_SEC", "60")
	t.Setenv("DCADASH_WORKBOOK_SHEET", "AltSheet")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cache.TTLSec != 60 {
		t.Errorf("cache ttl = %d, want env override 60", cfg.Cache.TTLSec)
	}
	if cfg.Workbook.Sheet != "AltSheet" {
		t.Errorf("workbook sheet = %q, want env override AltSheet", cfg.Workbook.Sheet)
	}
}
