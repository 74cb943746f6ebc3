package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.App.Name != "zhiban" || cfg.App.Port != 7021 {
		t.Errorf("Unexpected app defaults: %+v", cfg.App)
	}
	if cfg.Scheduler.Attempts != 8 || cfg.Scheduler.TimeBudget != 5*time.Second {
		t.Errorf("Unexpected scheduler defaults: %+v", cfg.Scheduler)
	}
	if cfg.Log.Level == "" {
		t.Error("Log config should fall back to defaults")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("APP_PORT", "9000")
	t.Setenv("SCHEDULER_WORKERS", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.App.Port != 9000 {
		t.Errorf("Expected port 9000, got %d", cfg.App.Port)
	}
	if cfg.Scheduler.Workers != 2 {
		t.Errorf("Expected 2 workers, got %d", cfg.Scheduler.Workers)
	}
}

func TestLoadYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "app:\n  port: 8100\nscheduler:\n  attempts: 16\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	// YAML 覆盖默认值
	if cfg.App.Port != 8100 || cfg.Scheduler.Attempts != 16 {
		t.Errorf("YAML should override defaults: port %d, attempts %d", cfg.App.Port, cfg.Scheduler.Attempts)
	}
	// 未覆盖字段保持默认
	if cfg.App.Name != "zhiban" {
		t.Errorf("Untouched fields keep defaults, got %q", cfg.App.Name)
	}

	// 环境变量压过 YAML
	t.Setenv("APP_PORT", "8200")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.App.Port != 8200 {
		t.Errorf("Env should override YAML, got %d", cfg.App.Port)
	}
}

func TestDatabaseDSN(t *testing.T) {
	db := DatabaseConfig{
		Host: "db.internal", Port: 5433, User: "app", Password: "secret",
		Name: "roster", SSLMode: "require",
	}
	want := "host=db.internal port=5433 user=app password=secret dbname=roster sslmode=require"
	if got := db.DSN(); got != want {
		t.Errorf("DSN mismatch:\n got %s\nwant %s", got, want)
	}
}
