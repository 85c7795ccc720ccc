package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Addr != DefaultAddr {
		t.Errorf("expected addr %q, got %q", DefaultAddr, cfg.Addr)
	}
	if cfg.RetentionDays != DefaultRetentionDays {
		t.Errorf("expected retention %d, got %d", DefaultRetentionDays, cfg.RetentionDays)
	}
	if cfg.SweepInterval != DefaultSweepInterval {
		t.Errorf("expected sweep interval %v, got %v", DefaultSweepInterval, cfg.SweepInterval)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	content := []byte("addr: \":9090\"\ndb_path: /tmp/td.db\nretention_days: 7\nsweep_interval: 30m\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Errorf("expected addr :9090, got %q", cfg.Addr)
	}
	if cfg.RetentionDays != 7 {
		t.Errorf("expected retention 7, got %d", cfg.RetentionDays)
	}
	if cfg.SweepInterval != 30*time.Minute {
		t.Errorf("expected sweep interval 30m, got %v", cfg.SweepInterval)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("retention_days: 7\n"), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("TASKDECK_RETENTION_DAYS", "14")
	t.Setenv("TASKDECK_ADMIN_TOKEN", "hunter2")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.RetentionDays != 14 {
		t.Errorf("expected env override to 14, got %d", cfg.RetentionDays)
	}
	if cfg.AdminToken != "hunter2" {
		t.Errorf("expected admin token from env, got %q", cfg.AdminToken)
	}
}

func TestLoad_MissingExplicitFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty addr", func(c *Config) { c.Addr = "" }},
		{"empty db path", func(c *Config) { c.DBPath = "" }},
		{"zero retention", func(c *Config) { c.RetentionDays = 0 }},
		{"negative retention", func(c *Config) { c.RetentionDays = -1 }},
		{"zero sweep interval", func(c *Config) { c.SweepInterval = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestRetention_ConvertsDays(t *testing.T) {
	cfg := Default()
	cfg.RetentionDays = 2
	if cfg.Retention() != 48*time.Hour {
		t.Errorf("expected 48h, got %v", cfg.Retention())
	}
}
