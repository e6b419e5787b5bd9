package config

import (
	"fmt"

	"github.com/kilianp07/busdepot/core/factory"
)

// HistoryConfig defines settings for evaluation history storage.
type HistoryConfig struct {
	// Backend selects the store type: "none", "jsonl", "sqlite" or "postgres".
	Backend string `json:"backend"`
	// Path is the file location of the jsonl and sqlite stores.
	Path string `json:"path"`
	// DSN is the postgres connection string.
	DSN string `json:"dsn"`
	// MaxSizeMB triggers jsonl rotation when the file exceeds this size in megabytes.
	MaxSizeMB int `json:"max_size_mb"`
	// MaxBackups limits the number of rotated files to keep.
	MaxBackups int `json:"max_backups"`
	// MaxAgeDays removes rotated files older than this number of days.
	MaxAgeDays int `json:"max_age_days"`
}

// SetDefaults applies sane defaults.
func (c *HistoryConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "none"
	}
	if c.Path == "" {
		switch c.Backend {
		case "jsonl":
			c.Path = "history.jsonl"
		case "sqlite":
			c.Path = "history.db"
		}
	}
}

// Validate checks mandatory fields.
func (c HistoryConfig) Validate() error {
	switch c.Backend {
	case "none":
		return nil
	case "jsonl", "sqlite":
		if c.Path == "" {
			return fmt.Errorf("path is required")
		}
	case "postgres":
		if c.DSN == "" {
			return fmt.Errorf("dsn is required")
		}
	default:
		return fmt.Errorf("unknown backend %s", c.Backend)
	}
	return nil
}

// Module converts the section to the store factory configuration.
func (c HistoryConfig) Module() factory.ModuleConfig {
	return factory.ModuleConfig{
		Type: c.Backend,
		Conf: map[string]any{
			"path":         c.Path,
			"dsn":          c.DSN,
			"max_size_mb":  c.MaxSizeMB,
			"max_backups":  c.MaxBackups,
			"max_age_days": c.MaxAgeDays,
		},
	}
}
