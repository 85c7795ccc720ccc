package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"go.yaml.in/yaml/v3"
)

// Defaults applied when neither the config file nor the environment sets a
// value.
const (
	DefaultAddr          = ":8080"
	DefaultDBPath        = "taskdeck.db"
	DefaultRetentionDays = 30
	DefaultSweepInterval = time.Hour
)

// Config holds the server configuration. Values are read from an optional
// YAML file, then overridden by TASKDECK_* environment variables.
type Config struct {
	Addr          string        `yaml:"addr"`
	DBPath        string        `yaml:"db_path"`
	RetentionDays int           `yaml:"retention_days"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	AdminToken    string        `yaml:"admin_token"`
}

// Default returns a Config with all defaults applied.
func Default() *Config {
	return &Config{
		Addr:          DefaultAddr,
		DBPath:        DefaultDBPath,
		RetentionDays: DefaultRetentionDays,
		SweepInterval: DefaultSweepInterval,
	}
}

// Retention returns the trash retention window as a duration.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// Validate checks the config for errors.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("invalid config: addr is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("invalid config: db_path is required")
	}
	if c.RetentionDays <= 0 {
		return fmt.Errorf("invalid config: retention_days must be > 0, got %d", c.RetentionDays)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("invalid config: sweep_interval must be > 0, got %v", c.SweepInterval)
	}
	return nil
}

// Load reads the config file at path (if path is non-empty), applies
// environment overrides, and validates the result. A missing file at the
// default path is not an error; an explicitly requested file must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TASKDECK_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("TASKDECK_DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("TASKDECK_RETENTION_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil {
			c.RetentionDays = days
		}
	}
	if v := os.Getenv("TASKDECK_SWEEP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.SweepInterval = d
		}
	}
	if v := os.Getenv("TASKDECK_ADMIN_TOKEN"); v != "" {
		c.AdminToken = v
	}
}
